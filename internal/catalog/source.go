package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonrepair"
	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/GriffinCanCode/voiceorder/internal/backend"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/resilience"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// MenuFetcher is the slice of the backend client the HTTP source needs.
type MenuFetcher interface {
	Menu(ctx context.Context) ([]backend.MenuItem, error)
	Knowledge(ctx context.Context) (string, error)
}

// HTTPSource reads the menu and knowledge base from the ordering backend.
// The menu is cached for ttl; knowledge is fetched on every call so each
// session starts with current text, falling back to the last good copy.
type HTTPSource struct {
	api     MenuFetcher
	cache   *gocache.Cache
	breaker *resilience.Breaker
	retry   resilience.RetryConfig

	mu            sync.Mutex
	lastKnowledge string
}

// NewHTTPSource creates a source over the backend client.
func NewHTTPSource(api MenuFetcher, ttl time.Duration, breaker *resilience.Breaker) *HTTPSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if breaker == nil {
		breaker = resilience.New("catalog", resilience.CatalogConfig())
	}
	return &HTTPSource{
		api:     api,
		cache:   gocache.New(ttl, cacheCleanup),
		breaker: breaker,
		retry:   resilience.ConnectRetryConfig(),
	}
}

// Snapshot returns the menu (cached) and fresh knowledge text.
func (s *HTTPSource) Snapshot(ctx context.Context) (Snapshot, error) {
	products, err := s.menu(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	knowledge, err := resilience.Call(ctx, s.breaker, s.retry, s.api.Knowledge)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		trace.Logger(ctx).Warn("knowledge fetch failed, using cached copy", "error", err)
		knowledge = s.lastKnowledge
	} else {
		s.lastKnowledge = knowledge
	}
	return Snapshot{Products: products, Knowledge: knowledge}, nil
}

// Invalidate drops the cached menu.
func (s *HTTPSource) Invalidate() {
	s.cache.Delete(menuCacheKey)
}

func (s *HTTPSource) menu(ctx context.Context) ([]Product, error) {
	if v, ok := s.cache.Get(menuCacheKey); ok {
		return v.([]Product), nil
	}

	items, err := resilience.Call(ctx, s.breaker, s.retry, s.api.Menu)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "fetch menu")
	}
	products := make([]Product, len(items))
	for i, it := range items {
		products[i] = Product{
			ID:          it.ID,
			Name:        it.Name,
			Category:    it.Category,
			Price:       it.Price,
			Description: it.Description,
		}
	}
	s.cache.SetDefault(menuCacheKey, products)
	return products, nil
}

// FileSource serves a snapshot from a YAML or JSON file, re-read on every
// call so edits apply to the next session.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Snapshot(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, apperrors.Wrapf(err, apperrors.Unavailable, "read catalog %s", f.path)
	}
	snap, err := ParseSnapshot(data, filepath.Ext(f.path))
	if err != nil {
		return Snapshot{}, apperrors.Wrapf(err, apperrors.InvalidArgument, "parse catalog %s", f.path)
	}
	return snap, nil
}

// ParseSnapshot decodes a snapshot document. ".yaml"/".yml" use YAML;
// anything else is JSON, repaired once if it fails to parse.
func ParseSnapshot(data []byte, ext string) (Snapshot, error) {
	var snap Snapshot
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return Snapshot{}, err
		}
	default:
		if err := unmarshalJSON(data, &snap); err != nil {
			return Snapshot{}, err
		}
	}
	snap.Knowledge = strings.TrimSpace(snap.Knowledge)
	return snap, nil
}

func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); !ok {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(bytes.TrimSpace(data)))
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}
