package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/voiceorder/internal/backend"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/resilience"
)

type fakeAPI struct {
	menuCalls    atomic.Int32
	knowledge    string
	knowledgeErr error
}

func (f *fakeAPI) Menu(context.Context) ([]backend.MenuItem, error) {
	f.menuCalls.Add(1)
	return []backend.MenuItem{{ID: "7", Name: "Pepsi 0.5L", Category: "Drinks", Price: 9000}}, nil
}

func (f *fakeAPI) Knowledge(context.Context) (string, error) {
	return f.knowledge, f.knowledgeErr
}

func TestHTTPSourceCachesMenu(t *testing.T) {
	api := &fakeAPI{knowledge: "Hours: 9 to 23"}
	src := NewHTTPSource(api, time.Minute, nil)

	for i := 0; i < 3; i++ {
		snap, err := src.Snapshot(context.Background())
		require.NoError(t, err)
		require.Len(t, snap.Products, 1)
		assert.Equal(t, "Pepsi 0.5L", snap.Products[0].Name)
		assert.Equal(t, "Hours: 9 to 23", snap.Knowledge)
	}
	assert.Equal(t, int32(1), api.menuCalls.Load())

	src.Invalidate()
	_, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.menuCalls.Load())
}

func TestHTTPSourceKnowledgeFallback(t *testing.T) {
	api := &fakeAPI{knowledge: "Wi-Fi password: guest2024"}
	breaker := resilience.New("catalog-test", resilience.Config{Threshold: 100})
	src := NewHTTPSource(api, time.Minute, breaker)
	src.retry = resilience.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	_, err := src.Snapshot(context.Background())
	require.NoError(t, err)

	api.knowledge = ""
	api.knowledgeErr = apperrors.New(apperrors.Unavailable, "backend down")
	snap, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Wi-Fi password: guest2024", snap.Knowledge)
}

type failingAPI struct{ fakeAPI }

func (f *failingAPI) Menu(context.Context) ([]backend.MenuItem, error) {
	return nil, errors.New("boom")
}

func TestHTTPSourceMenuFailure(t *testing.T) {
	src := NewHTTPSource(&failingAPI{}, time.Minute, nil)
	_, err := src.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.Unavailable))
}

func TestFileSourceYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	doc := `
products:
  - id: "3"
    name: Fri
    category: Sides
    price: 12000
knowledge: |
  Hours: 9 to 23
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	snap, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, int64(12000), snap.Products[0].Price)
	assert.Equal(t, "Hours: 9 to 23", snap.Knowledge)
}

func TestParseSnapshotRepairsJSON(t *testing.T) {
	doc := `{"products": [{"id": "7", "name": "Pepsi 0.5L", "category": "Drinks", "price": 9000},], "knowledge": "Hours: 9 to 23"`

	snap, err := ParseSnapshot([]byte(doc), ".json")
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "7", snap.Products[0].ID)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.Unavailable))
}

func TestSnapshotHelpers(t *testing.T) {
	snap := Snapshot{Products: []Product{
		{ID: "1", Name: "Fri", Category: "Sides"},
		{ID: "7", Name: "Pepsi 0.5L", Category: "Drinks"},
	}}

	p, ok := snap.ByID("7")
	assert.True(t, ok)
	assert.Equal(t, "Pepsi 0.5L", p.Name)
	assert.Equal(t, "- \"Fri\" (Sides)\n- \"Pepsi 0.5L\" (Drinks)", snap.MenuList())
}
