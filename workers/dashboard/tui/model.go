// Package tui is the terminal frontend of the dashboard.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"pipeline-workers/workers/dashboard/services"
)

const defaultRefreshInterval = 30 * time.Second

type tab int

const (
	tabOverview tab = iota
	tabQuality
	tabStatistics
	tabCharts
	tabData
	tabPipeline
)

var tabNames = []string{"Overview", "Quality", "Statistics", "Charts", "Data", "Pipeline"}

func (t tab) String() string { return tabNames[t] }

// Source builds the render model of one refresh.
type Source interface {
	Snapshot(ctx context.Context, req services.Request) *services.Snapshot
}

type snapshotMsg struct {
	snap *services.Snapshot
}

type refreshTickMsg struct{}

type artifactsChangedMsg struct{}

type Option func(*Model)

func WithRefreshInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.refresh = d
		}
	}
}

// WithChanges refreshes the dashboard whenever ch is signalled.
func WithChanges(ch <-chan struct{}) Option {
	return func(m *Model) { m.changes = ch }
}

func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

type Model struct {
	ctx     context.Context
	source  Source
	refresh time.Duration
	changes <-chan struct{}

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	tab       tab
	file      string
	timeRange services.TimeRange
	chart     int
	snap      *services.Snapshot
	loading   bool
	width     int
	height    int
}

func New(source Source, opts ...Option) *Model {
	m := &Model{
		ctx:       context.Background(),
		source:    source,
		refresh:   defaultRefreshInterval,
		keys:      defaultKeys(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		timeRange: services.AllTime,
		loading:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.scheduleRefresh(), m.waitForChange(), m.spinner.Tick)
}

func (m *Model) fetch() tea.Cmd {
	req := services.Request{File: m.file, Range: m.timeRange}
	return func() tea.Msg {
		return snapshotMsg{snap: m.source.Snapshot(m.ctx, req)}
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return artifactsChangedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.loading = false
		m.snap = msg.snap
		if msg.snap != nil {
			m.file = msg.snap.Selected
		}
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.reload(), m.scheduleRefresh())

	case artifactsChangedMsg:
		return m, tea.Batch(m.reload(), m.waitForChange())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tab(len(tabNames))
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
	case key.Matches(msg, m.keys.NextFile):
		return m, m.moveFile(1)
	case key.Matches(msg, m.keys.PrevFile):
		return m, m.moveFile(-1)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.reload()
	case key.Matches(msg, m.keys.TimeRange):
		m.timeRange = m.timeRange.Next()
		return m, m.reload()
	case key.Matches(msg, m.keys.Chart):
		if m.tab == tabCharts {
			m.chart = (m.chart + 1) % len(services.ChartKinds)
		}
	}
	return m, nil
}

// moveFile selects the neighbouring cleaned artifact, newest first.
func (m *Model) moveFile(delta int) tea.Cmd {
	if m.snap == nil || len(m.snap.Files) == 0 {
		return nil
	}
	idx := 0
	for i, f := range m.snap.Files {
		if f.Name == m.file {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.snap.Files)) % len(m.snap.Files)
	if m.snap.Files[idx].Name == m.file {
		return nil
	}
	m.file = m.snap.Files[idx].Name
	return m.reload()
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	return m.fetch()
}
