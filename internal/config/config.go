package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kbforge/kbforge/internal/domain"
)

// HandlerType identifies which kind of source tree a Config governs.
type HandlerType string

const (
	HandlerProjectBase  HandlerType = "project-base"
	HandlerGitClones    HandlerType = "git-clones"
	HandlerPDFKnowledge HandlerType = "pdf-knowledge"
)

// IndexingMode selects how aggressively the Rebuild Decision Engine treats
// cache freshness.
type IndexingMode string

const (
	// Incremental runs the full four-phase staleness calculus.
	Incremental IndexingMode = "incremental"
	// FullKBRebuild forces every directory to CreateDirectoryKB but still
	// respects file-level cache freshness.
	FullKBRebuild IndexingMode = "full_kb_rebuild"
	// Full bypasses all cache freshness checks.
	Full IndexingMode = "full"
)

// FileProcessingConfig bounds per-file and per-run resource usage.
type FileProcessingConfig struct {
	MaxFileSize             int64 `json:"max_file_size"`
	BatchSize               int   `json:"batch_size"`
	MaxConcurrentOperations int   `json:"max_concurrent_operations"`
}

// ExclusionSet names extensions and directory names/patterns to skip.
// Patterns support doublestar globs ("**/node_modules") as well as exact
// names ("vendor").
type ExclusionSet struct {
	Extensions  []string `json:"extensions"`
	Directories []string `json:"directories"`
}

// ContentFilteringConfig controls what Discovery walks into, plus the
// chunking parameters used by handlers that split large documents
// (pdf-knowledge in particular).
type ContentFilteringConfig struct {
	Exclusions   ExclusionSet `json:"exclusions"`
	ChunkSize    int          `json:"chunk_size"`
	ChunkOverlap int          `json:"chunk_overlap"`
}

// LLMParameters configures a single model call.
type LLMParameters struct {
	Model                   string  `json:"model"`
	Temperature             float64 `json:"temperature"`
	MaxTokens               int     `json:"max_tokens"`
	ExtendedThinking        bool    `json:"extended_thinking"`
	MaxContinuationAttempts int     `json:"max_continuation_attempts"`
	MaxReviewIterations     int     `json:"max_review_iterations"`
	// MaxTransportRetries bounds how many times a single completion call
	// is retried after a transient client error before surfacing as a
	// TaskIOError.
	MaxTransportRetries int `json:"max_transport_retries"`
}

// ChangeDetectionConfig governs the staleness calculus.
type ChangeDetectionConfig struct {
	// TimestampToleranceSeconds is accepted and persisted for schema
	// compatibility. It is never applied: staleness is strictly
	// cache_mtime >= source_mtime. See internal/cache.IsFresh.
	TimestampToleranceSeconds int          `json:"timestamp_tolerance_seconds"`
	IndexingMode              IndexingMode `json:"indexing_mode"`
}

// ErrorHandlingConfig governs failure propagation.
type ErrorHandlingConfig struct {
	ContinueOnFileErrors bool `json:"continue_on_file_errors"`
}

// OutputConfig names where generated artifacts land.
type OutputConfig struct {
	OutRoot string `json:"out_root"`
}

// DebugConfig controls replay-mode recording/playback.
type DebugConfig struct {
	DebugEnabled         bool   `json:"debug_enabled"`
	DebugReplay          bool   `json:"debug_replay"`
	DebugOutputDirectory string `json:"debug_output_directory"`
}

// Config is the fully validated, per-handler configuration document.
type Config struct {
	Handler          HandlerType            `json:"handler"`
	FileProcessing   FileProcessingConfig   `json:"file_processing"`
	ContentFiltering ContentFilteringConfig `json:"content_filtering"`
	LLM              LLMParameters          `json:"llm_config"`
	ChangeDetection  ChangeDetectionConfig  `json:"change_detection"`
	ErrorHandling    ErrorHandlingConfig    `json:"error_handling"`
	Output           OutputConfig           `json:"output_config"`
	Debug            DebugConfig            `json:"debug_config"`
}

// universalExclusions apply to every handler type regardless of its own
// exclusion list.
var universalExclusions = ExclusionSet{
	Extensions:  []string{".exe", ".dll", ".so", ".dylib", ".o", ".a", ".bin", ".class", ".pyc"},
	Directories: []string{".git", ".svn", ".hg", "node_modules", "vendor", "**/__pycache__"},
}

// DefaultConfig returns sensible defaults for the given handler type.
func DefaultConfig(handler HandlerType) *Config {
	cfg := &Config{
		Handler: handler,
		FileProcessing: FileProcessingConfig{
			MaxFileSize:             2 * 1024 * 1024,
			BatchSize:               20,
			MaxConcurrentOperations: 4,
		},
		ContentFiltering: ContentFilteringConfig{
			Exclusions:   ExclusionSet{},
			ChunkSize:    4000,
			ChunkOverlap: 200,
		},
		LLM: LLMParameters{
			Model:                   "auto",
			Temperature:             0.3,
			MaxTokens:               4096,
			ExtendedThinking:        false,
			MaxContinuationAttempts: 3,
			MaxReviewIterations:     2,
			MaxTransportRetries:     3,
		},
		ChangeDetection: ChangeDetectionConfig{
			TimestampToleranceSeconds: 0,
			IndexingMode:              Incremental,
		},
		ErrorHandling: ErrorHandlingConfig{
			ContinueOnFileErrors: true,
		},
		Output: OutputConfig{
			OutRoot: ".kbforge/out",
		},
		Debug: DebugConfig{
			DebugEnabled:         false,
			DebugReplay:          false,
			DebugOutputDirectory: ".kbforge/out/llm_debug",
		},
	}

	switch handler {
	case HandlerProjectBase:
		cfg.ContentFiltering.Exclusions.Directories = []string{"dist", "build", "target", "coverage"}
		cfg.ContentFiltering.Exclusions.Extensions = []string{".log", ".tmp"}
	case HandlerGitClones:
		cfg.ContentFiltering.Exclusions.Directories = []string{"**/.git"}
	case HandlerPDFKnowledge:
		cfg.ContentFiltering.Exclusions.Extensions = []string{}
	}

	return cfg
}

// fileName returns the conventional config file name for a handler type.
func fileName(handler HandlerType) string {
	return fmt.Sprintf("%s.indexing-config.json", handler)
}

// Manager loads, validates, and caches a single handler's Config.
type Manager struct {
	dir       string
	handler   HandlerType
	cfg       *Config
	envLookup func(string) (string, bool)
}

// NewManager creates a configuration manager rooted at dir for the given
// handler type.
func NewManager(dir string, handler HandlerType) *Manager {
	return &Manager{
		dir:       dir,
		handler:   handler,
		envLookup: os.LookupEnv,
	}
}

// Load reads the handler's configuration file, auto-generating a default
// document if one doesn't exist, expanding environment variables, and
// validating the result. The parsed Config is cached on the Manager.
func (m *Manager) Load() (*Config, error) {
	path := filepath.Join(m.dir, fileName(m.handler))

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig(m.handler)
		if err := m.save(path, cfg); err != nil {
			return nil, fmt.Errorf("generate default config: %w", err)
		}
		m.cfg = cfg
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	clean := stripJSONComments(data)

	var cfg Config
	if err := json.Unmarshal(clean, &cfg); err != nil {
		return nil, &domain.ConfigurationError{
			Handler: string(m.handler),
			Field:   "(document)",
			Reason:  fmt.Sprintf("invalid JSON in %s: %v", path, err),
		}
	}
	cfg.Handler = m.handler

	m.expandEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m.cfg = &cfg
	return &cfg, nil
}

// Get returns the cached Config, or nil if Load hasn't been called.
func (m *Manager) Get() *Config { return m.cfg }

// Save writes cfg to the handler's conventional path.
func (m *Manager) Save(cfg *Config) error {
	return m.save(filepath.Join(m.dir, fileName(m.handler)), cfg)
}

func (m *Manager) save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (m *Manager) expandEnvVars(cfg *Config) {
	cfg.LLM.Model = m.expandString(cfg.LLM.Model)
	cfg.Output.OutRoot = m.expandString(cfg.Output.OutRoot)
	cfg.Debug.DebugOutputDirectory = m.expandString(cfg.Debug.DebugOutputDirectory)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func (m *Manager) expandString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}
		if value, ok := m.envLookup(name); ok && value != "" {
			return value
		}
		return match
	})
}

// Validate applies the cross-field validation rules, returning a
// single joined error (errors.Join) naming every violation at once rather
// than stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	if c.ContentFiltering.ChunkSize > 0 && c.ContentFiltering.ChunkOverlap >= c.ContentFiltering.ChunkSize {
		errs = append(errs, &domain.ConfigurationError{
			Handler: string(c.Handler),
			Field:   "content_filtering.chunk_overlap",
			Reason:  "chunk_overlap must be strictly less than chunk_size",
		})
	}

	if c.Handler == HandlerProjectBase {
		own := c.ContentFiltering.Exclusions
		if len(own.Directories) == 0 && len(own.Extensions) == 0 {
			errs = append(errs, &domain.ConfigurationError{
				Handler: string(c.Handler),
				Field:   "content_filtering.exclusions",
				Reason:  "project-base requires a non-empty exclusion list",
			})
		}
	}

	if c.FileProcessing.MaxConcurrentOperations < 1 {
		errs = append(errs, &domain.ConfigurationError{
			Handler: string(c.Handler),
			Field:   "file_processing.max_concurrent_operations",
			Reason:  "must be at least 1",
		})
	}

	if c.FileProcessing.MaxFileSize < 0 {
		errs = append(errs, &domain.ConfigurationError{
			Handler: string(c.Handler),
			Field:   "file_processing.max_file_size",
			Reason:  "must be non-negative",
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// AllExclusions returns the composition of the universal base exclusion
// set with the handler-specific one.
func AllExclusions(c *Config) ExclusionSet {
	return ExclusionSet{
		Extensions:  append(append([]string{}, universalExclusions.Extensions...), c.ContentFiltering.Exclusions.Extensions...),
		Directories: append(append([]string{}, universalExclusions.Directories...), c.ContentFiltering.Exclusions.Directories...),
	}
}

// ShouldExcludeDirectory reports whether name (a bare directory name) or
// relPath (its path relative to the source root) matches any configured
// directory exclusion pattern.
func ShouldExcludeDirectory(c *Config, name, relPath string) bool {
	for _, pattern := range AllExclusions(c).Directories {
		if name == pattern {
			return true
		}
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ShouldExcludeExtension reports whether ext (including the leading dot)
// matches any configured extension exclusion pattern.
func ShouldExcludeExtension(c *Config, ext string) bool {
	for _, pattern := range AllExclusions(c).Extensions {
		if ext == pattern {
			return true
		}
		if ok, _ := doublestar.Match(pattern, ext); ok {
			return true
		}
	}
	return false
}

// stripJSONComments removes // line comments and /* */ block comments
// outside of string literals, so config documents may be written as JSONC.
func stripJSONComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	inLineComment := false
	inBlockComment := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		var next byte
		if i+1 < len(data) {
			next = data[i+1]
		}

		if inLineComment {
			if c == '\n' {
				inLineComment = false
				out = append(out, c)
			}
			continue
		}
		if inBlockComment {
			if c == '*' && next == '/' {
				inBlockComment = false
				i++
			}
			continue
		}
		if inString {
			out = append(out, c)
			if c == '\\' && !escaped {
				escaped = true
				continue
			}
			if c == '"' && !escaped {
				inString = false
			}
			escaped = false
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && next == '/':
			inLineComment = true
			i++
		case c == '/' && next == '*':
			inBlockComment = true
			i++
		default:
			out = append(out, c)
		}
	}
	return out
}
