package services

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
	"pipeline-workers/logging"
)

const ServiceName = "ingest"

// Consumer-side interfaces
type ObjectStore interface {
	List(ctx context.Context) ([]domain.ObjectInfo, error)
	Get(ctx context.Context, name string) ([]byte, domain.ObjectInfo, error)
	Backend() string
}

type StatusRegistry interface {
	Get(ctx context.Context, stage domain.Stage, file string) (*domain.StatusRecord, error)
	Transition(ctx context.Context, stage domain.Stage, file string, to domain.Status, mutate func(*domain.StatusRecord)) (*domain.StatusRecord, error)
	PutStageSummary(ctx context.Context, stage domain.Stage, s domain.StageSummary) error
}

type ArtifactWriter interface {
	Write(name string, data []byte) error
}

type Ledger interface {
	Record(ctx context.Context, event domain.ProcessingEvent) error
}

// TickReport is the outcome of one ingest cycle.
type TickReport struct {
	RunID     string
	Seen      int
	Processed int
	Skipped   int
	Failed    int
	// Failures maps object names to their error message.
	Failures map[string]string
}

type IngestService struct {
	store      ObjectStore
	registry   StatusRegistry
	artifacts  ArtifactWriter
	ledger     Ledger
	logger     *zap.SugaredLogger
	extensions map[string]bool
	now        func() time.Time
	newRunID   func() string
}

// Functional Options Pattern
type IngestOption func(*IngestService)

func WithObjectStore(s ObjectStore) IngestOption {
	return func(svc *IngestService) { svc.store = s }
}

func WithRegistry(r StatusRegistry) IngestOption {
	return func(svc *IngestService) { svc.registry = r }
}

func WithArtifactStore(a ArtifactWriter) IngestOption {
	return func(svc *IngestService) { svc.artifacts = a }
}

func WithLedger(l Ledger) IngestOption {
	return func(svc *IngestService) { svc.ledger = l }
}

func WithLogger(l *zap.SugaredLogger) IngestOption {
	return func(svc *IngestService) { svc.logger = l }
}

// WithExtensions restricts ingestion to objects with one of exts (".csv").
func WithExtensions(exts []string) IngestOption {
	return func(svc *IngestService) {
		svc.extensions = map[string]bool{}
		for _, e := range exts {
			svc.extensions[strings.ToLower(e)] = true
		}
	}
}

func WithClock(now func() time.Time) IngestOption {
	return func(svc *IngestService) { svc.now = now }
}

func NewIngestService(opts ...IngestOption) *IngestService {
	s := &IngestService{
		logger:   logging.Nop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IngestService) supported(name string) bool {
	if s.extensions == nil {
		return true
	}
	return s.extensions[strings.ToLower(path.Ext(name))]
}

// RunTick mirrors every new or changed supported object into a raw
// artifact. A failure to list the store or to reach the registry aborts the
// tick without touching any file record. Failures of single objects are
// recorded on their status record and the tick continues.
func (s *IngestService) RunTick(ctx context.Context) (TickReport, error) {
	report := TickReport{RunID: s.newRunID(), Failures: map[string]string{}}
	log := s.logger.With("run_id", report.RunID)

	objects, err := s.store.List(ctx)
	if err != nil {
		err = domain.MarkTransient(errors.Wrap(err, "list objects"))
		s.publish(ctx, report, err)
		return report, err
	}

	owners := s.artifactOwners(objects)
	for _, obj := range objects {
		if !s.supported(obj.Name) {
			log.Debugw("skipping unsupported object", "object", obj.Name)
			continue
		}
		report.Seen++

		artifact := domain.RawArtifactName(obj.Name)
		if owner := owners[artifact]; owner != obj.Name {
			objErr := domain.MarkPerObject(errors.Newf("raw artifact %s is already produced by %s", artifact, owner))
			if err := s.fail(ctx, report.RunID, obj.Name, objErr); err != nil {
				err = domain.MarkTransient(err)
				s.publish(ctx, report, err)
				return report, err
			}
			report.Failed++
			report.Failures[obj.Name] = objErr.Error()
			log.Warnw("conflicting object name", "object", obj.Name, "artifact", artifact, "owner", owner)
			continue
		}

		rec, err := s.registry.Get(ctx, domain.StageIngest, obj.Name)
		if err != nil {
			err = domain.MarkTransient(errors.Wrapf(err, "read status of %s", obj.Name))
			s.publish(ctx, report, err)
			return report, err
		}
		if !domain.IngestStale(obj, rec) {
			report.Skipped++
			continue
		}

		objErr, err := s.ingest(ctx, report.RunID, obj)
		if err != nil {
			err = domain.MarkTransient(err)
			s.publish(ctx, report, err)
			return report, err
		}
		if objErr != nil {
			report.Failed++
			report.Failures[obj.Name] = objErr.Error()
			log.Warnw("failed to ingest object", "object", obj.Name, "error", objErr)
			continue
		}
		report.Processed++
		log.Infow("ingested object", "object", obj.Name, "artifact", artifact)
	}

	s.publish(ctx, report, nil)
	log.Infow("ingestion cycle completed", "seen", report.Seen, "processed", report.Processed, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// ingest processes one object. objErr is the per-object failure already
// recorded on the object's status; err is a registry failure.
func (s *IngestService) ingest(ctx context.Context, runID string, obj domain.ObjectInfo) (objErr, err error) {
	if _, err := s.transition(ctx, runID, obj.Name, domain.StatusProcessing, nil); err != nil {
		return nil, err
	}

	artifact, info, objErr := s.download(ctx, obj)
	if objErr != nil {
		_, err := s.transition(ctx, runID, obj.Name, domain.StatusError, func(rec *domain.StatusRecord) {
			rec.ErrorMessage = objErr.Error()
		})
		return objErr, err
	}

	_, err = s.transition(ctx, runID, obj.Name, domain.StatusDone, func(rec *domain.StatusRecord) {
		rec.SourceModified = info.LastModified
		rec.ETag = info.ETag
		rec.Size = info.Size
		rec.Artifact = artifact
	})
	return nil, err
}

// artifactOwners maps every raw artifact name to the supported object that
// produces it. When several objects map to one name the smallest object name
// owns it.
func (s *IngestService) artifactOwners(objects []domain.ObjectInfo) map[string]string {
	owners := make(map[string]string, len(objects))
	for _, obj := range objects {
		if !s.supported(obj.Name) {
			continue
		}
		artifact := domain.RawArtifactName(obj.Name)
		if owner, ok := owners[artifact]; !ok || obj.Name < owner {
			owners[artifact] = obj.Name
		}
	}
	return owners
}

// fail records objErr on the status of file without touching any artifact.
func (s *IngestService) fail(ctx context.Context, runID, file string, objErr error) error {
	if _, err := s.transition(ctx, runID, file, domain.StatusProcessing, nil); err != nil {
		return err
	}
	_, err := s.transition(ctx, runID, file, domain.StatusError, func(rec *domain.StatusRecord) {
		rec.ErrorMessage = objErr.Error()
	})
	return err
}

func (s *IngestService) download(ctx context.Context, obj domain.ObjectInfo) (string, domain.ObjectInfo, error) {
	data, info, err := s.store.Get(ctx, obj.Name)
	if err != nil {
		return "", obj, domain.MarkPerObject(err)
	}
	// Listing metadata wins: it is what the staleness check compares against.
	if !obj.LastModified.IsZero() {
		info.LastModified = obj.LastModified
	}
	if obj.ETag != "" {
		info.ETag = obj.ETag
	}
	if info.Size == 0 {
		info.Size = int64(len(data))
	}

	f, err := frame.Parse(obj.Name, data)
	if err != nil {
		return "", info, domain.MarkPerObject(errors.Wrapf(err, "parse %s", obj.Name))
	}
	f, err = Standardize(f, Metadata{
		IngestedAt: info.LastModified,
		DataSource: s.store.Backend(),
		SourceFile: obj.Name,
	})
	if err != nil {
		return "", info, domain.MarkPerObject(errors.Wrapf(err, "standardize %s", obj.Name))
	}
	csv, err := frame.EncodeCSV(f)
	if err != nil {
		return "", info, domain.MarkPerObject(errors.Wrapf(err, "encode %s", obj.Name))
	}

	artifact := domain.RawArtifactName(obj.Name)
	if err := s.artifacts.Write(artifact, csv); err != nil {
		return "", info, domain.MarkPerObject(errors.Wrapf(err, "write %s", artifact))
	}
	return artifact, info, nil
}

func (s *IngestService) transition(ctx context.Context, runID, file string, to domain.Status, mutate func(*domain.StatusRecord)) (*domain.StatusRecord, error) {
	rec, err := s.registry.Transition(ctx, domain.StageIngest, file, to, mutate)
	if err != nil {
		return nil, errors.Wrapf(err, "set %s to %s", file, to)
	}
	if s.ledger != nil {
		event := domain.ProcessingEvent{
			RunID:      runID,
			Stage:      domain.StageIngest,
			File:       file,
			Status:     to,
			Message:    rec.ErrorMessage,
			OccurredAt: rec.Timestamp,
		}
		if err := s.ledger.Record(ctx, event); err != nil {
			s.logger.Warnw("failed to record processing event", "object", file, "error", err)
		}
	}
	return rec, nil
}

// publish writes the cycle summary to sync_status. Failures are logged: the
// summary is informational.
func (s *IngestService) publish(ctx context.Context, report TickReport, tickErr error) {
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
	if err := s.registry.PutStageSummary(ctx, domain.StageIngest, summary); err != nil {
		s.logger.Warnw("failed to update sync status", "error", err)
	}
}
