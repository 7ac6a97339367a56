// Package config loads and validates per-handler-type settings for the
// knowledge-base rebuild engine: file-size and concurrency limits,
// exclusion sets, LLM parameters, and debug options.
//
// Configuration file structure
//
// One JSON document per handler type, named "<handler>.indexing-config.json":
//
//	project-base.indexing-config.json
//	git-clones.indexing-config.json
//	pdf-knowledge.indexing-config.json
//
// Each document has sections file_processing, content_filtering,
// llm_config, change_detection, error_handling, output_config, and
// debug_config. A missing file is populated from DefaultConfig for that
// handler the first time Manager.Load is called.
//
// Environment variable support
//
// String fields may reference environment variables using $VAR or ${VAR}
// syntax, expanded on load.
//
// Design philosophy
//
//   - Explicit per-handler documents, no implicit inheritance beyond the
//     universal exclusion set composed with the handler-specific one.
//   - timestamp_tolerance_seconds is accepted and round-tripped but never
//     consulted by the staleness calculus (see internal/cache).
package config
