package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/interrogation-engine/pkg/profile"
	"github.com/jwebster45206/interrogation-engine/pkg/storage"
)

var caseExtensions = []string{".json", ".yaml", ".yml"}

// CaseDir loads case files from <dataDir>/cases. It needs no Redis, so the
// console uses it directly.
type CaseDir struct {
	dataDir string
	logger  *slog.Logger
}

func NewCaseDir(dataDir string, logger *slog.Logger) *CaseDir {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &CaseDir{dataDir: dataDir, logger: logger}
}

// ListCases returns the ids of every case file under <dataDir>/cases.
func (r *CaseDir) ListCases(ctx context.Context) ([]string, error) {
	casesDir := filepath.Join(r.dataDir, "cases")
	seen := make(map[string]bool)

	err := filepath.WalkDir(casesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != casesDir {
				return fs.SkipDir
			}
			return nil
		}
		if _, err := profile.FormatFromPath(path); err != nil {
			return nil
		}
		seen[strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))] = true
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to walk cases directory", "error", err)
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetCase loads <dataDir>/cases/<id>.{json,yaml,yml}. The filename overrides
// any id in the file.
func (r *CaseDir) GetCase(ctx context.Context, id string) (*profile.Case, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: %q", storage.ErrCaseNotFound, id)
	}

	for _, ext := range caseExtensions {
		path := filepath.Join(r.dataDir, "cases", id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read case file: %w", err)
		}

		format, err := profile.FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		c, err := profile.DecodeCase(data, format)
		if err != nil {
			r.logger.Error("Failed to decode case", "path", path, "error", err)
			return nil, fmt.Errorf("failed to decode case %s: %w", id, err)
		}
		c.ID = id
		r.logger.Debug("Loaded case", "case_id", id, "path", path, "characters", len(c.Characters))
		return c, nil
	}

	return nil, fmt.Errorf("%w: %s", storage.ErrCaseNotFound, id)
}
