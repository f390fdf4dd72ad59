package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
)

// PreviewRows is the number of rows of the Data tab.
const PreviewRows = 10

type Request struct {
	File  string
	Range TimeRange
}

// Snapshot is everything a frontend needs to render one refresh.
type Snapshot struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	NoData      bool                        `json:"no_data"`
	LastIngest  *time.Time                  `json:"last_ingest,omitempty"`
	LastClean   *time.Time                  `json:"last_cleaning,omitempty"`
	Files       []repositories.ArtifactInfo `json:"files"`
	Selected    string                      `json:"selected,omitempty"`
	Info        *FileInfo                   `json:"info,omitempty"`
	Summary     *domain.QualitySummary      `json:"summary,omitempty"`
	Data        DataSummary                 `json:"data_summary"`
	Range       string                      `json:"range"`
	Filtered    bool                        `json:"filtered"`
	Rows        int                         `json:"rows"`
	Stats       Statistics                  `json:"statistics"`
	Health      Health                      `json:"health"`
	Error       string                      `json:"error,omitempty"`

	Frame *frame.Frame `json:"-"`
}

type DashboardService struct {
	loader *DataLoader
	health *HealthReader
	logger *zap.SugaredLogger
	now    func() time.Time
}

type DashboardOption func(*DashboardService)

func WithLoader(l *DataLoader) DashboardOption {
	return func(s *DashboardService) { s.loader = l }
}

func WithHealth(h *HealthReader) DashboardOption {
	return func(s *DashboardService) { s.health = h }
}

func WithLogger(logger *zap.SugaredLogger) DashboardOption {
	return func(s *DashboardService) { s.logger = logger }
}

func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

func NewDashboardService(opts ...DashboardOption) *DashboardService {
	s := &DashboardService{logger: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot reads the pipeline state and the selected cleaned artifact. The
// newest file is selected when req.File is empty or gone. Failures reading
// the artifact directory are reported in Error rather than returned.
func (s *DashboardService) Snapshot(ctx context.Context, req Request) *Snapshot {
	if req.Range.Label == "" {
		req.Range = AllTime
	}
	snap := &Snapshot{GeneratedAt: s.now().UTC(), Range: req.Range.Label}

	healthDone := make(chan Health, 1)
	go func() { healthDone <- s.health.Snapshot(ctx) }()
	defer func() {
		snap.Health = <-healthDone
		snap.LastIngest = lastRun(snap.Health.Ingest.Summary)
		snap.LastClean = lastRun(snap.Health.Clean.Summary)
	}()

	files, err := s.loader.AvailableFiles()
	if err != nil {
		s.logger.Warnw("failed to list cleaned artifacts", "error", err)
		snap.Error = err.Error()
		snap.NoData = true
		return snap
	}
	snap.Files = files
	if len(files) == 0 {
		snap.NoData = true
		return snap
	}

	snap.Selected = files[0].Name
	for _, f := range files {
		if f.Name == req.File {
			snap.Selected = f.Name
			break
		}
	}
	s.fill(snap, req.Range)
	return snap
}

func (s *DashboardService) fill(snap *Snapshot, r TimeRange) {
	var err error
	if snap.Data, err = s.loader.DataSummary(); err != nil {
		s.logger.Warnw("failed to summarise cleaned artifacts", "error", err)
	}
	if snap.Info, err = s.loader.FileInfo(snap.Selected); err != nil {
		snap.Error = err.Error()
		return
	}
	if snap.Summary, err = s.loader.LoadSummary(snap.Selected); err != nil {
		s.logger.Warnw("failed to read quality summary", "file", snap.Selected, "error", err)
	}
	f, err := s.loader.LoadFrame(snap.Selected)
	if err != nil {
		snap.Error = err.Error()
		return
	}
	f, snap.Filtered = ApplyTimeFilter(f, r, s.now())
	snap.Frame = f
	snap.Rows = f.NumRows()
	snap.Stats = Compute(f)
}

func lastRun(sum *domain.StageSummary) *time.Time {
	if sum == nil || sum.LastRun.IsZero() {
		return nil
	}
	t := sum.LastRun
	return &t
}
