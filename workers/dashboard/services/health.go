package services

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pipeline-workers/domain"
	"pipeline-workers/logging"
)

// TimelineLimit is the number of processing events shown by the dashboard.
const TimelineLimit = 10

type RegistryReader interface {
	List(ctx context.Context, stage domain.Stage) ([]domain.StatusRecord, error)
	GetStageSummary(ctx context.Context, stage domain.Stage) (*domain.StageSummary, error)
}

type EventReader interface {
	Recent(ctx context.Context, limit int) ([]domain.ProcessingEvent, error)
}

type StageHealth struct {
	Stage   domain.Stage          `json:"stage"`
	Summary *domain.StageSummary  `json:"summary"`
	Records []domain.StatusRecord `json:"records"`
	Counts  map[domain.Status]int `json:"counts"`
}

// Health is the pipeline view read from the status registry. When the
// registry cannot be read Available is false and Error says why.
type Health struct {
	Available bool                     `json:"available"`
	Error     string                   `json:"error,omitempty"`
	Ingest    StageHealth              `json:"ingest"`
	Clean     StageHealth              `json:"clean"`
	Timeline  []domain.ProcessingEvent `json:"timeline"`
}

type HealthReader struct {
	registry RegistryReader
	events   EventReader
	logger   *zap.SugaredLogger
}

// NewHealthReader builds a reader; events may be nil when no ledger is
// configured.
func NewHealthReader(registry RegistryReader, events EventReader, logger *zap.SugaredLogger) *HealthReader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HealthReader{registry: registry, events: events, logger: logger}
}

func (h *HealthReader) Snapshot(ctx context.Context) Health {
	out := Health{Ingest: StageHealth{Stage: domain.StageIngest}, Clean: StageHealth{Stage: domain.StageClean}}

	g, gctx := errgroup.WithContext(ctx)
	for _, sh := range []*StageHealth{&out.Ingest, &out.Clean} {
		sh := sh
		g.Go(func() error { return h.readStage(gctx, sh) })
	}
	if err := g.Wait(); err != nil {
		h.logger.Warnw("status registry unavailable", "error", err)
		return Health{
			Error:  err.Error(),
			Ingest: StageHealth{Stage: domain.StageIngest},
			Clean:  StageHealth{Stage: domain.StageClean},
		}
	}
	out.Available = true
	out.Timeline = h.timeline(ctx, out.Ingest.Records, out.Clean.Records)
	return out
}

func (h *HealthReader) readStage(ctx context.Context, sh *StageHealth) error {
	summary, err := h.registry.GetStageSummary(ctx, sh.Stage)
	if err != nil {
		return err
	}
	records, err := h.registry.List(ctx, sh.Stage)
	if err != nil {
		return err
	}
	sh.Summary = summary
	sh.Records = records
	sh.Counts = map[domain.Status]int{}
	for _, r := range records {
		sh.Counts[r.Status]++
	}
	return nil
}

// timeline prefers the ledger history and falls back to the latest record of
// every file.
func (h *HealthReader) timeline(ctx context.Context, records ...[]domain.StatusRecord) []domain.ProcessingEvent {
	if h.events != nil {
		events, err := h.events.Recent(ctx, TimelineLimit)
		if err != nil {
			h.logger.Warnw("processing ledger unavailable, using registry records", "error", err)
		} else if len(events) > 0 {
			return events
		}
	}

	var events []domain.ProcessingEvent
	for _, rs := range records {
		for _, r := range rs {
			events = append(events, domain.ProcessingEvent{
				Stage:      r.Stage,
				File:       r.File,
				Status:     r.Status,
				Message:    r.ErrorMessage,
				OccurredAt: r.Timestamp,
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.File < b.File
	})
	if len(events) > TimelineLimit {
		events = events[:TimelineLimit]
	}
	return events
}
