package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResultRepo struct {
	maxID  int64
	maxErr error
}

func (f *fakeResultRepo) PutResult(ctx context.Context, item map[string]any) error { return nil }

func (f *fakeResultRepo) ScanResults(ctx context.Context) ([]map[string]any, error) {
	return nil, nil
}

func (f *fakeResultRepo) PutSummary(ctx context.Context, analyticsID int64, item map[string]any) error {
	return nil
}

func (f *fakeResultRepo) MaxAnalyticsID(ctx context.Context) (int64, error) {
	return f.maxID, f.maxErr
}

func TestResolveBatchIDPrefersExplicitFlag(t *testing.T) {
	id, err := resolveBatchID(context.Background(), &fakeResultRepo{maxID: 9}, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), id)
}

func TestResolveBatchIDFallsBackToLatest(t *testing.T) {
	id, err := resolveBatchID(context.Background(), &fakeResultRepo{maxID: 9}, 0)
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
}

func TestResolveBatchIDRejectsEmptyStore(t *testing.T) {
	_, err := resolveBatchID(context.Background(), &fakeResultRepo{maxID: 0}, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no batches to aggregate")
}

func TestResolveBatchIDPropagatesLookupFailure(t *testing.T) {
	lookupErr := errors.New("store unavailable")
	_, err := resolveBatchID(context.Background(), &fakeResultRepo{maxErr: lookupErr}, 0)
	require.ErrorIs(t, err, lookupErr)
}