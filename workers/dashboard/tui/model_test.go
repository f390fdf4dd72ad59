package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-workers/repositories"
	"pipeline-workers/workers/dashboard/services"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	requests []services.Request
	snap     *services.Snapshot
}

func (f *fakeSource) Snapshot(_ context.Context, req services.Request) *services.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	snap := *f.snap
	if req.File != "" {
		snap.Selected = req.File
	}
	return &snap
}

func (f *fakeSource) last() services.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func threeFiles() *services.Snapshot {
	return &services.Snapshot{
		Files: []repositories.ArtifactInfo{
			{Name: "cleaned_c.csv", ModTime: t0.Add(2 * time.Hour)},
			{Name: "cleaned_b.csv", ModTime: t0.Add(time.Hour)},
			{Name: "cleaned_a.csv", ModTime: t0},
		},
		Selected: "cleaned_c.csv",
		Health:   services.Health{Available: true},
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded runs the initial fetch synchronously.
func loaded(t *testing.T, src *fakeSource, opts ...Option) *Model {
	t.Helper()
	m := New(src, opts...)
	msg := m.fetch()()
	_, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	require.NotNil(t, m.snap)
	return m
}

func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestInit_ReturnsCommands(t *testing.T) {
	m := New(&fakeSource{snap: threeFiles()})
	assert.NotNil(t, m.Init())
	assert.True(t, m.loading)
}

func TestSnapshotMsg_SelectsFile(t *testing.T) {
	m := loaded(t, &fakeSource{snap: threeFiles()})

	assert.False(t, m.loading)
	assert.Equal(t, "cleaned_c.csv", m.file)
}

func TestTabs_Cycle(t *testing.T) {
	m := loaded(t, &fakeSource{snap: threeFiles()})

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabQuality, m.tab)

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, tabPipeline, m.tab)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabOverview, m.tab)
}

func TestFileNavigation(t *testing.T) {
	src := &fakeSource{snap: threeFiles()}
	m := loaded(t, src)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	run(t, m, cmd)
	assert.Equal(t, "cleaned_b.csv", src.last().File)
	assert.Equal(t, "cleaned_b.csv", m.file)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	run(t, m, cmd)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	run(t, m, cmd)
	assert.Equal(t, "cleaned_a.csv", m.file, "navigation wraps around")
}

func TestFileNavigation_SingleFileDoesNothing(t *testing.T) {
	snap := threeFiles()
	snap.Files = snap.Files[:1]
	m := loaded(t, &fakeSource{snap: snap})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})

	assert.Nil(t, cmd)
}

func TestTimeRangeKey(t *testing.T) {
	src := &fakeSource{snap: threeFiles()}
	m := loaded(t, src)

	_, cmd := m.Update(keyRunes("t"))
	run(t, m, cmd)

	assert.Equal(t, services.LastHour, m.timeRange)
	assert.Equal(t, services.LastHour, src.last().Range)
}

func TestRefreshKeyAndTick(t *testing.T) {
	src := &fakeSource{snap: threeFiles()}
	m := loaded(t, src)

	_, cmd := m.Update(keyRunes("r"))
	assert.True(t, m.loading)
	run(t, m, cmd)
	assert.Len(t, src.requests, 2)

	_, cmd = m.Update(refreshTickMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, m.loading)
}

func TestChartKey_OnlyOnChartsTab(t *testing.T) {
	m := loaded(t, &fakeSource{snap: threeFiles()})

	m.Update(keyRunes("c"))
	assert.Equal(t, 0, m.chart)

	m.tab = tabCharts
	m.Update(keyRunes("c"))
	assert.Equal(t, 1, m.chart)
}

func TestQuitKey(t *testing.T) {
	m := loaded(t, &fakeSource{snap: threeFiles()})

	_, cmd := m.Update(keyRunes("q"))

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestArtifactChangesTriggerRefresh(t *testing.T) {
	changes := make(chan struct{}, 1)
	src := &fakeSource{snap: threeFiles()}
	m := loaded(t, src, WithChanges(changes))

	changes <- struct{}{}
	msg := m.waitForChange()()
	assert.Equal(t, artifactsChangedMsg{}, msg)

	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
	assert.True(t, m.loading)
}

func TestWaitForChange_WithoutWatcher(t *testing.T) {
	m := New(&fakeSource{snap: threeFiles()})
	assert.Nil(t, m.waitForChange())
}
