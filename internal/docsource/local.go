package docsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// LocalDir serves documents from a directory of plain-text files, one
// `<documentId>.txt` per document.
type LocalDir struct {
	dir    string
	logger zerolog.Logger
}

// NewLocalDir constructs a local directory source.
func NewLocalDir(dir string, logger zerolog.Logger) *LocalDir {
	return &LocalDir{
		dir:    dir,
		logger: logger.With().Str("component", "local_docsource").Logger(),
	}
}

// List returns the names of all .txt files in the directory, sorted.
func (s *LocalDir) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents in %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	s.logger.Debug().Int("count", len(names)).Str("dir", s.dir).Msg("listed documents")

	return names, nil
}

// Load reads the named document's text.
func (s *LocalDir) Load(ctx context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("load document %s: %w", name, err)
	}

	return string(data), nil
}
