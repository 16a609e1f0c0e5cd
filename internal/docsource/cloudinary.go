package docsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"sync"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ObjectStoreConfig contains credentials and the listing prefix for the
// Cloudinary-backed document source.
type ObjectStoreConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Prefix    string
}

// ObjectStore serves documents from Cloudinary raw assets under a prefix.
// Objects that do not sniff as plain text are rejected at load time so stray
// uploads (unconverted PDFs, images) never reach the grading model.
type ObjectStore struct {
	client *cloudinary.Cloudinary
	http   *http.Client
	prefix string
	logger zerolog.Logger

	mu   sync.Mutex
	urls map[string]string
}

// NewObjectStore constructs a Cloudinary-backed source.
func NewObjectStore(cfg ObjectStoreConfig, logger zerolog.Logger) (*ObjectStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &ObjectStore{
		client: cld,
		http:   &http.Client{},
		prefix: cfg.Prefix,
		logger: logger.With().Str("component", "object_docsource").Logger(),
		urls:   make(map[string]string),
	}, nil
}

// List enumerates raw assets under the configured prefix and returns their
// base names. Download URLs are remembered for Load.
func (s *ObjectStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0)
	cursor := ""
	for {
		result, err := s.client.Admin.Assets(ctx, admin.AssetsParams{
			AssetType:  api.File,
			Prefix:     s.prefix,
			MaxResults: 100,
			NextCursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects with prefix %s: %w", s.prefix, err)
		}

		for _, asset := range result.Assets {
			name := path.Base(asset.PublicID)
			names = append(names, name)
			s.urls[name] = asset.SecureURL
		}

		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}
	sort.Strings(names)

	s.logger.Debug().Int("count", len(names)).Str("prefix", s.prefix).Msg("listed objects")

	return names, nil
}

// Load downloads the named object and returns its text.
func (s *ObjectStore) Load(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	url, ok := s.urls[name]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("document %s was not listed", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request for %s: %w", name, err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download document %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download document %s: status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", name, err)
	}

	if kind := mimetype.Detect(data); !kind.Is("text/plain") {
		return "", fmt.Errorf("document %s is %s, expected plain text", name, kind.String())
	}

	return string(data), nil
}
