package connectors

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogcsv/internal/storage"
)

type mapLookup map[string][]string

func (mapLookup) Name() string { return "map" }

func (m mapLookup) ImagesFor(_ context.Context, sku string) ([]string, error) {
	if sku == "BROKEN" {
		return nil, errors.New("folder unreadable")
	}
	return m[sku], nil
}

func TestFetchAllRecordsAndAbsorbsErrors(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	lookup := mapLookup{"A1": {"u1", "u2"}}
	svc := NewFetchService(db, lookup, logger)

	found, res, err := svc.FetchAll(context.Background(), []string{"A1", "BROKEN", "B2"})
	require.NoError(t, err)
	require.Len(t, found, 3)

	assert.Equal(t, []string{"u1", "u2"}, found[0].URLs)
	assert.Error(t, found[1].Err)
	assert.Empty(t, found[2].URLs)
	assert.Equal(t, FetchResult{Looked: 3, WithURLs: 1, URLs: 2, Failed: 1}, res)

	urls, ok, err := db.GetImages("A1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"u1", "u2"}, urls)

	_, ok, err = db.GetImages("BROKEN")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewFetchService(nil, None{}, nil).FetchAll(ctx, []string{"A1"})
	assert.ErrorIs(t, err, context.Canceled)
}

type flakyLookup struct {
	mapLookup
	down      bool
	refreshed int
}

func (f *flakyLookup) Refresh() { f.refreshed++ }

func (f *flakyLookup) ImagesFor(ctx context.Context, sku string) ([]string, error) {
	if f.down {
		return nil, errors.New("listing unavailable")
	}
	return f.mapLookup.ImagesFor(ctx, sku)
}

func TestFetchAllFallsBackToRecordedImages(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	lookup := &flakyLookup{mapLookup: mapLookup{"A1": {"u1", "u2"}}}
	svc := NewFetchService(db, lookup, logger)

	_, _, err = svc.FetchAll(context.Background(), []string{"A1"})
	require.NoError(t, err)

	lookup.down = true
	found, res, err := svc.FetchAll(context.Background(), []string{"A1", "B2"})
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.NoError(t, found[0].Err)
	assert.Equal(t, []string{"u1", "u2"}, found[0].URLs)
	assert.Error(t, found[1].Err)
	assert.Equal(t, FetchResult{Looked: 2, WithURLs: 1, URLs: 2, Failed: 2, Recorded: 1}, res)
	assert.Equal(t, 2, lookup.refreshed)
}
