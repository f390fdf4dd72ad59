package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-workers/domain"
	"pipeline-workers/repositories"
)

func newDashboard(t *testing.T, fx *artifactFixture, reg RegistryReader) *DashboardService {
	t.Helper()
	return NewDashboardService(
		WithLoader(fx.loader(t)),
		WithHealth(NewHealthReader(reg, nil, nil)),
		WithClock(func() time.Time { return t0.Add(30 * time.Minute) }),
	)
}

func TestSnapshot_NoData(t *testing.T) {
	fx := newArtifactFixture(t)
	svc := newDashboard(t, fx, seededRegistry(t))

	snap := svc.Snapshot(context.Background(), Request{})

	assert.True(t, snap.NoData)
	assert.Empty(t, snap.Selected)
	require.NotNil(t, snap.LastIngest)
	assert.True(t, snap.LastIngest.Equal(t0.Add(2*time.Minute)))
	assert.Nil(t, snap.LastClean)
	assert.True(t, snap.Health.Available)
}

func TestSnapshot_SelectsNewestByDefault(t *testing.T) {
	fx := newArtifactFixture(t)
	fx.put(t, "cleaned_a.csv", cleanedCSV, t0)
	fx.put(t, "cleaned_b.csv", "id\n1\n", t0.Add(time.Hour))
	svc := newDashboard(t, fx, seededRegistry(t))

	snap := svc.Snapshot(context.Background(), Request{})

	assert.False(t, snap.NoData)
	assert.Equal(t, "cleaned_b.csv", snap.Selected)
	assert.Equal(t, 1, snap.Rows)
	assert.Equal(t, 2, snap.Data.TotalFiles)
	assert.Equal(t, AllTime.Label, snap.Range)
	assert.Nil(t, snap.Summary)
}

func TestSnapshot_RequestedFileAndRange(t *testing.T) {
	fx := newArtifactFixture(t)
	fx.put(t, "cleaned_a.csv", cleanedCSV, t0)
	fx.put(t, "cleaned_b.csv", "id\n1\n", t0.Add(time.Hour))
	data, err := json.Marshal(domain.QualitySummary{Source: "raw_a.csv", CleanedRows: 4})
	require.NoError(t, err)
	fx.put(t, "summary_a.json", string(data), t0)
	svc := newDashboard(t, fx, seededRegistry(t))

	snap := svc.Snapshot(context.Background(), Request{File: "cleaned_a.csv", Range: LastHour})

	assert.Equal(t, "cleaned_a.csv", snap.Selected)
	assert.True(t, snap.Filtered)
	assert.Equal(t, 2, snap.Rows)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 4, snap.Summary.CleanedRows)
	require.Len(t, snap.Stats.Categorical, 1)
	assert.Equal(t, 2, snap.Stats.Categorical[0].Count)
	require.NotNil(t, snap.Frame)
}

func TestSnapshot_UnknownFileFallsBackToNewest(t *testing.T) {
	fx := newArtifactFixture(t)
	fx.put(t, "cleaned_a.csv", cleanedCSV, t0)
	svc := newDashboard(t, fx, repositories.NewStatusRegistry(repositories.NewMemoryKV()))

	snap := svc.Snapshot(context.Background(), Request{File: "cleaned_gone.csv"})

	assert.Equal(t, "cleaned_a.csv", snap.Selected)
	assert.Nil(t, snap.LastIngest)
}

func TestSnapshot_RegistryDownStillShowsData(t *testing.T) {
	fx := newArtifactFixture(t)
	fx.put(t, "cleaned_a.csv", cleanedCSV, t0)
	svc := newDashboard(t, fx, brokenRegistry{})

	snap := svc.Snapshot(context.Background(), Request{})

	assert.False(t, snap.Health.Available)
	assert.Equal(t, 4, snap.Rows)
	assert.Empty(t, snap.Error)
}
