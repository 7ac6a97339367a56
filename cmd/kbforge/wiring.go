package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/llmadapter"
	"github.com/kbforge/kbforge/internal/logging"
	"github.com/kbforge/kbforge/internal/pathmap"
)

func newLogger() (*zap.Logger, error) {
	return logging.New(flagVerbose)
}

// loadEngineConfig loads the handler's configuration from root and builds
// the Mapper between root and its resolved output directory.
// JESSE_OUT_ROOT, when set, overrides the configured out_root.
func loadEngineConfig(root string, handler config.HandlerType) (*config.Config, *pathmap.Mapper, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	mgr := config.NewManager(absRoot, handler)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, nil, err
	}

	outRoot := cfg.Output.OutRoot
	if override, ok := os.LookupEnv("JESSE_OUT_ROOT"); ok && override != "" {
		outRoot = override
	}
	if !filepath.IsAbs(outRoot) {
		outRoot = filepath.Join(absRoot, outRoot)
	}
	cfg.Output.OutRoot = outRoot

	if _, ok := os.LookupEnv("JESSE_DEBUG_REPLAY"); ok {
		cfg.Debug.DebugReplay = true
	}

	mapper, err := pathmap.New(absRoot, outRoot, string(handler))
	if err != nil {
		return nil, nil, err
	}
	return cfg, mapper, nil
}

// buildAdapter wires an llmadapter.Adapter from cfg, including debug
// record/replay when configured.
func buildAdapter(cfg *config.Config, logger *zap.Logger) *llmadapter.Adapter {
	client := llmadapter.NewHTTPClient("http://localhost:1234", cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens)

	var debug *llmadapter.Recorder
	if cfg.Debug.DebugEnabled || cfg.Debug.DebugReplay {
		dir := cfg.Debug.DebugOutputDirectory
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Output.OutRoot, "llm_debug")
		}
		debug = llmadapter.NewRecorder(dir, cfg.Debug.DebugEnabled, cfg.Debug.DebugReplay)
	}

	return llmadapter.New(client, llmadapter.Options{
		MaxContinuationAttempts: cfg.LLM.MaxContinuationAttempts,
		MaxReviewIterations:     cfg.LLM.MaxReviewIterations,
		MaxTransportRetries:     cfg.LLM.MaxTransportRetries,
	}, debug, logger)
}
