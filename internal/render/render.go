package render

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const noContentPlaceholder = "*No content available*"

// PromptForDirectory builds the prompt asking the LLM to summarize a
// directory from its already-analyzed children. fileSummaries and
// subdirSummaries are keyed by base name.
func PromptForDirectory(dirName string, fileSummaries map[string]string, subdirSummaries map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the directory %q from the analyses of its contents below. "+
		"Describe its overall purpose and how its pieces relate; do not simply restate each entry.\n\n", dirName)

	for _, name := range sortedKeys(fileSummaries) {
		fmt.Fprintf(&b, "## File: %s\n%s\n\n", name, fileSummaries[name])
	}
	for _, name := range sortedKeys(subdirSummaries) {
		fmt.Fprintf(&b, "## Subdirectory: %s\n%s\n\n", name, subdirSummaries[name])
	}
	return b.String()
}

// DirectoryInput carries everything Directory needs to assemble one
// knowledge file body.
type DirectoryInput struct {
	ProjectRoot string
	SourceDir   string
	Summary     string
	FileNames   []string
	SubdirNames []string
	GeneratedAt time.Time
}

// Directory assembles a directory's knowledge file body: a warning
// header, the LLM-produced summary, sorted file/subdirectory listings
// using portable paths, and a metadata footer.
func Directory(in DirectoryInput) string {
	files := append([]string(nil), in.FileNames...)
	subdirs := append([]string(nil), in.SubdirNames...)
	sort.Slice(files, func(i, j int) bool { return strings.ToLower(files[i]) < strings.ToLower(files[j]) })
	sort.Slice(subdirs, func(i, j int) bool { return strings.ToLower(subdirs[i]) < strings.ToLower(subdirs[j]) })

	var b strings.Builder
	b.WriteString("<!-- GENERATED FILE: do not edit by hand; regenerated on every rebuild. -->\n\n")
	fmt.Fprintf(&b, "# %s\n\n", portablePath(in.ProjectRoot, in.SourceDir))

	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		summary = noContentPlaceholder
	}
	b.WriteString(summary)
	b.WriteString("\n\n")

	b.WriteString("## Files\n\n")
	if len(files) == 0 {
		b.WriteString(noContentPlaceholder + "\n\n")
	} else {
		for _, f := range files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Subdirectories\n\n")
	if len(subdirs) == 0 {
		b.WriteString(noContentPlaceholder + "\n\n")
	} else {
		for _, s := range subdirs {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	generatedAt := in.GeneratedAt.UTC()
	fmt.Fprintf(&b, "---\n_Generated %s · %d file(s) · %d subdirector(y/ies)_\n",
		generatedAt.Format(time.RFC3339), len(files), len(subdirs))

	return b.String()
}

// portablePath rewrites an absolute directory path relative to
// projectRoot as "{PROJECT_ROOT}/...", using forward slashes regardless
// of host OS, so generated knowledge files diff cleanly across machines.
func portablePath(projectRoot, dir string) string {
	rel, err := filepath.Rel(projectRoot, dir)
	if err != nil || rel == "." {
		return "{PROJECT_ROOT}"
	}
	return "{PROJECT_ROOT}/" + filepath.ToSlash(rel)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return strings.ToLower(keys[i]) < strings.ToLower(keys[j]) })
	return keys
}
