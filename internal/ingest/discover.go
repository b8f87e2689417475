package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/util"
)

// DiscoverAnswerFiles walks rootDir and returns the answer files matching
// the data configuration's include/exclude globs, as paths relative to
// rootDir. The result is sorted so batch runs visit surveys in a stable
// order regardless of filesystem iteration.
func DiscoverAnswerFiles(ctx context.Context, rootDir string, cfg config.DataConfig) ([]string, error) {
	logger := util.FromContext(ctx)
	logger.Info("Discovering answer files", "root", rootDir, "include", cfg.Include, "exclude", cfg.Exclude)

	var matched []string
	err := filepath.WalkDir(rootDir, func(absPath string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Error accessing path during discovery", "path", absPath, "error", err)
			return err
		}
		rel, err := filepath.Rel(rootDir, absPath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if excludedDir(rel, cfg.Exclude) {
				logger.Debug("Skipping excluded directory", "dir", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAnswerFile(rel, cfg) {
			matched = append(matched, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matched)
	logger.Info("Answer file discovery completed", "files", len(matched))
	return matched, nil
}

// excludedDir reports whether a directory is covered by an exclude glob.
// A pattern like "node_modules/**" excludes the directory itself, so the
// walk can skip the whole subtree instead of testing every file under it.
func excludedDir(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		if !strings.HasSuffix(pattern, "/**") {
			continue
		}
		if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
			return true
		}
	}
	return false
}

// matchesAnswerFile applies excludes first, then includes. An empty include
// list accepts every file the loaders support.
func matchesAnswerFile(rel string, cfg config.DataConfig) bool {
	for _, pattern := range cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(cfg.Include) == 0 {
		return LoaderFor(rel, cfg) != nil
	}
	for _, pattern := range cfg.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
