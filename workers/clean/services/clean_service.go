package services

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pipeline-workers/cleaning"
	"pipeline-workers/domain"
	"pipeline-workers/frame"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
)

const ServiceName = "clean"

// Consumer-side interfaces
type ArtifactStore interface {
	List(prefix string) ([]repositories.ArtifactInfo, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

type StatusRegistry interface {
	Get(ctx context.Context, stage domain.Stage, file string) (*domain.StatusRecord, error)
	Transition(ctx context.Context, stage domain.Stage, file string, to domain.Status, mutate func(*domain.StatusRecord)) (*domain.StatusRecord, error)
	PutStageSummary(ctx context.Context, stage domain.Stage, s domain.StageSummary) error
}

type Ledger interface {
	Record(ctx context.Context, event domain.ProcessingEvent) error
}

type TickReport struct {
	RunID     string
	Seen      int
	Processed int
	Skipped   int
	Failed    int
	Failures  map[string]string
}

type CleanService struct {
	artifacts ArtifactStore
	registry  StatusRegistry
	ledger    Ledger
	pipeline  *cleaning.Pipeline
	logger    *zap.SugaredLogger
	now       func() time.Time
	newRunID  func() string
}

type CleanOption func(*CleanService)

func WithArtifactStore(a ArtifactStore) CleanOption {
	return func(s *CleanService) { s.artifacts = a }
}

func WithRegistry(r StatusRegistry) CleanOption {
	return func(s *CleanService) { s.registry = r }
}

func WithLedger(l Ledger) CleanOption {
	return func(s *CleanService) { s.ledger = l }
}

func WithPipeline(p *cleaning.Pipeline) CleanOption {
	return func(s *CleanService) { s.pipeline = p }
}

func WithLogger(l *zap.SugaredLogger) CleanOption {
	return func(s *CleanService) { s.logger = l }
}

func WithClock(now func() time.Time) CleanOption {
	return func(s *CleanService) { s.now = now }
}

func NewCleanService(opts ...CleanOption) *CleanService {
	s := &CleanService{
		pipeline: cleaning.NewPipeline(cleaning.DefaultMissingDropThreshold),
		logger:   logging.Nop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTick cleans every raw artifact that is new or was rewritten since it
// was last cleaned. Listing or registry failures abort the tick; a failure
// on one artifact is recorded on its status and the others continue.
func (s *CleanService) RunTick(ctx context.Context) (TickReport, error) {
	report := TickReport{RunID: s.newRunID(), Failures: map[string]string{}}
	log := s.logger.With("run_id", report.RunID)

	raws, err := s.artifacts.List(domain.PrefixRaw)
	if err != nil {
		err = domain.MarkTransient(errors.Wrap(err, "list raw artifacts"))
		s.publish(ctx, report, err)
		return report, err
	}

	for _, raw := range raws {
		if !domain.IsRawArtifact(raw.Name) {
			continue
		}
		report.Seen++

		rec, err := s.registry.Get(ctx, domain.StageClean, raw.Name)
		if err != nil {
			err = domain.MarkTransient(errors.Wrapf(err, "read clean status of %s", raw.Name))
			s.publish(ctx, report, err)
			return report, err
		}
		if !domain.CleanStale(raw.ModTime, rec) {
			report.Skipped++
			continue
		}

		procErr, err := s.clean(ctx, report.RunID, raw)
		if err != nil {
			err = domain.MarkTransient(err)
			s.publish(ctx, report, err)
			return report, err
		}
		if procErr != nil {
			report.Failed++
			report.Failures[raw.Name] = procErr.Error()
			log.Warnw("failed to clean artifact", "artifact", raw.Name, "error", procErr)
			continue
		}
		report.Processed++
		log.Infow("cleaned artifact", "artifact", raw.Name, "cleaned", domain.CleanedArtifactName(raw.Name))
	}

	s.publish(ctx, report, nil)
	log.Infow("cleaning cycle completed", "seen", report.Seen, "processed", report.Processed, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (s *CleanService) clean(ctx context.Context, runID string, raw repositories.ArtifactInfo) (procErr, err error) {
	if _, err := s.transition(ctx, runID, raw.Name, domain.StatusProcessing, nil); err != nil {
		return nil, err
	}

	cleaned, size, procErr := s.process(raw)
	if procErr != nil {
		_, err := s.transition(ctx, runID, raw.Name, domain.StatusError, func(rec *domain.StatusRecord) {
			rec.ErrorMessage = procErr.Error()
		})
		return procErr, err
	}

	_, err = s.transition(ctx, runID, raw.Name, domain.StatusDone, func(rec *domain.StatusRecord) {
		rec.SourceModified = raw.ModTime
		rec.Size = size
		rec.Artifact = cleaned
	})
	return nil, err
}

// process writes the cleaned artifact and then its summary, so a summary
// never describes a cleaned file that does not exist.
func (s *CleanService) process(raw repositories.ArtifactInfo) (string, int64, error) {
	data, err := s.artifacts.Read(raw.Name)
	if err != nil {
		return "", 0, domain.MarkProcessing(err)
	}
	f, err := frame.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return "", 0, domain.MarkProcessing(errors.Wrapf(err, "parse %s", raw.Name))
	}
	res, err := s.pipeline.Run(f, cleaning.Source{Name: raw.Name, Modified: raw.ModTime})
	if err != nil {
		return "", 0, domain.MarkProcessing(errors.Wrapf(err, "clean %s", raw.Name))
	}

	csv, err := frame.EncodeCSV(res.Frame)
	if err != nil {
		return "", 0, domain.MarkProcessing(errors.Wrapf(err, "encode %s", raw.Name))
	}
	summary, err := json.MarshalIndent(res.Summary, "", "  ")
	if err != nil {
		return "", 0, domain.MarkProcessing(errors.Wrapf(err, "encode summary of %s", raw.Name))
	}

	cleaned := domain.CleanedArtifactName(raw.Name)
	if err := s.artifacts.Write(cleaned, csv); err != nil {
		return "", 0, domain.MarkProcessing(err)
	}
	if err := s.artifacts.Write(domain.SummaryArtifactName(raw.Name), summary); err != nil {
		return "", 0, domain.MarkProcessing(err)
	}
	return cleaned, int64(len(csv)), nil
}

func (s *CleanService) transition(ctx context.Context, runID, file string, to domain.Status, mutate func(*domain.StatusRecord)) (*domain.StatusRecord, error) {
	rec, err := s.registry.Transition(ctx, domain.StageClean, file, to, mutate)
	if err != nil {
		return nil, errors.Wrapf(err, "set %s to %s", file, to)
	}
	if s.ledger != nil {
		event := domain.ProcessingEvent{
			RunID:      runID,
			Stage:      domain.StageClean,
			File:       file,
			Status:     to,
			Message:    rec.ErrorMessage,
			OccurredAt: rec.Timestamp,
		}
		if err := s.ledger.Record(ctx, event); err != nil {
			s.logger.Warnw("failed to record processing event", "artifact", file, "error", err)
		}
	}
	return rec, nil
}

func (s *CleanService) publish(ctx context.Context, report TickReport, tickErr error) {
	summary := domain.StageSummary{
		Service:   ServiceName,
		Status:    domain.StatusDone,
		LastRun:   s.now().UTC(),
		RunID:     report.RunID,
		Seen:      report.Seen,
		Processed: report.Processed,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	}
	if tickErr != nil {
		summary.Status = domain.StatusError
		summary.Error = tickErr.Error()
	}
	if err := s.registry.PutStageSummary(ctx, domain.StageClean, summary); err != nil {
		s.logger.Warnw("failed to update cleaning status", "error", err)
	}
}
