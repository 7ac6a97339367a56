package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/domain"
)

// Walk builds an immutable domain.DirectoryContext tree rooted at root,
// applying cfg's exclusion sets and max file size. Permission errors on
// a single directory are logged and that directory is skipped; the walk
// continues elsewhere.
func Walk(root string, cfg *config.Config, logger *zap.Logger) (domain.DirectoryContext, error) {
	root = filepath.Clean(root)
	if logger == nil {
		logger = zap.NewNop()
	}
	return walkDir(root, root, cfg, logger, true)
}

func walkDir(root, path string, cfg *config.Config, logger *zap.Logger, isRoot bool) (domain.DirectoryContext, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return domain.DirectoryContext{}, &domain.DiscoveryError{Path: path, Err: err}
	}

	ctx := domain.DirectoryContext{
		Path:          domain.SourcePath(path),
		Status:        domain.DirDiscovered,
		IsHandlerRoot: isRoot,
	}

	for _, entry := range entries {
		name := entry.Name()

		// Hidden entries and generated knowledge files are never source:
		// walking them would feed the engine's own output back into it.
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "_kb.md") {
			continue
		}

		childPath := filepath.Join(path, name)
		relPath := relOrSelf(root, childPath)

		if entry.IsDir() {
			if config.ShouldExcludeDirectory(cfg, name, relPath) {
				continue
			}

			subCtx, err := walkDir(root, childPath, cfg, logger, false)
			if err != nil {
				var discErr *domain.DiscoveryError
				if errors.As(err, &discErr) {
					logger.Warn("skipping directory after access error",
						zap.String("path", childPath), zap.Error(discErr.Err))
					continue
				}
				return domain.DirectoryContext{}, err
			}
			ctx.Subdirs = append(ctx.Subdirs, subCtx)
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if config.ShouldExcludeExtension(cfg, ext) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("skipping file after stat error", zap.String("path", childPath), zap.Error(err))
			continue
		}

		if cfg.FileProcessing.MaxFileSize > 0 && info.Size() > cfg.FileProcessing.MaxFileSize {
			logger.Debug("skipping oversized file",
				zap.String("path", childPath), zap.Int64("size", info.Size()),
				zap.Int64("max_file_size", cfg.FileProcessing.MaxFileSize))
			continue
		}

		ctx.Files = append(ctx.Files, domain.FileContext{
			Path:    domain.SourcePath(childPath),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Status:  domain.FileDiscovered,
		})
	}

	sort.Slice(ctx.Files, func(i, j int) bool {
		return strings.ToLower(string(ctx.Files[i].Path)) < strings.ToLower(string(ctx.Files[j].Path))
	})
	sort.Slice(ctx.Subdirs, func(i, j int) bool {
		return strings.ToLower(string(ctx.Subdirs[i].Path)) < strings.ToLower(string(ctx.Subdirs[j].Path))
	})

	return ctx, nil
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
