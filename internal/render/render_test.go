package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirectorySortsListingsCaseInsensitively(t *testing.T) {
	body := Directory(DirectoryInput{
		ProjectRoot: "/src",
		SourceDir:   "/src/pkg",
		Summary:     "Handles widgets.",
		FileNames:   []string{"zeta.go", "Alpha.go", "beta.go"},
		SubdirNames: []string{"Zsub", "asub"},
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	alphaIdx := indexOf(body, "Alpha.go")
	betaIdx := indexOf(body, "beta.go")
	zetaIdx := indexOf(body, "zeta.go")
	require.True(t, alphaIdx < betaIdx)
	require.True(t, betaIdx < zetaIdx)

	asubIdx := indexOf(body, "asub")
	zsubIdx := indexOf(body, "Zsub")
	require.True(t, asubIdx < zsubIdx)
}

func TestDirectoryUsesPortablePathForSourceDir(t *testing.T) {
	body := Directory(DirectoryInput{
		ProjectRoot: "/src",
		SourceDir:   "/src/pkg/sub",
		Summary:     "x",
		GeneratedAt: time.Now(),
	})
	require.Contains(t, body, "{PROJECT_ROOT}/pkg/sub")
}

func TestDirectoryPlaceholdersWhenEmpty(t *testing.T) {
	body := Directory(DirectoryInput{
		ProjectRoot: "/src",
		SourceDir:   "/src",
		Summary:     "",
		GeneratedAt: time.Now(),
	})
	require.Contains(t, body, noContentPlaceholder)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
