package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	metadataStart = "<!-- CACHE_METADATA_START -->"
	metadataEnd   = "<!-- CACHE_METADATA_END -->"
	formatVersion = "1.0"
	timeLayout    = time.RFC3339
)

// Read returns an analysis artifact's body with its metadata header
// stripped. A missing file reports found == false. A file present but
// missing the end marker is returned verbatim, for backward
// compatibility with artifacts written by an older format.
func Read(path string) (body string, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read analysis artifact %s: %w", path, err)
	}

	text := string(data)
	idx := strings.Index(text, metadataEnd)
	if idx < 0 {
		return text, true, nil
	}

	rest := text[idx+len(metadataEnd):]
	return strings.TrimLeft(rest, "\r\n"), true, nil
}

// Write creates path's parent directories idempotently and writes a
// metadata header followed by body, atomically (temp file + rename) so
// concurrent readers never observe a partial artifact.
func Write(path string, sourcePortablePath string, sourceModTime time.Time, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create analysis cache directory for %s: %w", path, err)
	}

	header := formatHeader(sourcePortablePath, time.Now().UTC(), sourceModTime.UTC())
	content := header + body

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-analysis-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp analysis artifact %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp analysis artifact %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}

	// A source dated ahead of the clock would leave the artifact
	// permanently stale under the strict mtime comparison; lift the
	// artifact's mtime to match so the rebuild converges.
	if sourceModTime.After(time.Now()) {
		if err := os.Chtimes(path, sourceModTime, sourceModTime); err != nil {
			return fmt.Errorf("adjust artifact mtime %s: %w", path, err)
		}
	}
	return nil
}

func formatHeader(sourcePortablePath string, cacheTime, sourceModTime time.Time) string {
	var b strings.Builder
	b.WriteString(metadataStart)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "<!-- source: %s -->\n", sourcePortablePath)
	fmt.Fprintf(&b, "<!-- cached_at: %s -->\n", cacheTime.Format(timeLayout))
	fmt.Fprintf(&b, "<!-- source_mtime: %s -->\n", sourceModTime.Format(timeLayout))
	fmt.Fprintf(&b, "<!-- format_version: %s -->\n", formatVersion)
	b.WriteString(metadataEnd)
	b.WriteByte('\n')
	return b.String()
}

// IsFresh reports whether the analysis artifact at path is fresh against
// a source file with modification time sourceModTime. Freshness is
// strictly cache_mtime >= source_mtime; no tolerance window is applied,
// regardless of any configured timestamp_tolerance_seconds. Any
// filesystem error comparing the two is treated conservatively as stale.
func IsFresh(path string, sourceModTime time.Time) (fresh bool, reason string) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "missing_cache"
		}
		return false, fmt.Sprintf("stat error: %v", err)
	}

	if !info.ModTime().Before(sourceModTime) {
		return true, "cache_mtime >= source_mtime"
	}
	return false, "source_newer_than_cache"
}

// IsKnowledgeFileStale reports whether a directory's knowledge file must
// be rebuilt: the file is missing, any constituent source file is newer
// than it, or any child subdirectory's knowledge file is newer than it.
// Cached analysis file mtimes are deliberately excluded from this check
// to prevent rebuild loops (analysis writes would otherwise make the
// parent knowledge file look stale forever).
func IsKnowledgeFileStale(knowledgePath string, fileModTimes []time.Time, subdirKnowledgeModTimes []time.Time) (stale bool, reason string) {
	info, err := os.Stat(knowledgePath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, "missing_cache"
		}
		return true, fmt.Sprintf("stat error: %v", err)
	}
	kbModTime := info.ModTime()

	for _, mt := range fileModTimes {
		if mt.After(kbModTime) {
			return true, "self_stale"
		}
	}
	for _, mt := range subdirKnowledgeModTimes {
		if mt.After(kbModTime) {
			return true, "cascaded_from_child"
		}
	}
	return false, "fresh_against_constituents"
}

// PrepareCacheStructure pre-creates every directory in dirs so that
// concurrently dispatched tasks never race on mkdir.
func PrepareCacheStructure(dirs []string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare cache directory %s: %w", dir, err)
		}
	}
	return nil
}
