package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"pipeline-workers/domain"
)

// StatusRegistry reads and writes typed status records on top of a KV.
type StatusRegistry struct {
	kv  KV
	now func() time.Time
}

func NewStatusRegistry(kv KV) *StatusRegistry {
	return &StatusRegistry{kv: kv, now: time.Now}
}

// Get returns the record of file for stage, or nil when there is none. A
// value that does not decode counts as absent.
func (r *StatusRegistry) Get(ctx context.Context, stage domain.Stage, file string) (*domain.StatusRecord, error) {
	raw, err := r.kv.Get(ctx, domain.StatusKey(stage, file))
	if domain.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(stage, file, raw), nil
}

func decodeRecord(stage domain.Stage, file, raw string) *domain.StatusRecord {
	var rec domain.StatusRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || !rec.Status.Valid() {
		return nil
	}
	rec.Stage, rec.File = stage, file
	return &rec
}

// Put stores rec as is.
func (r *StatusRegistry) Put(ctx context.Context, rec *domain.StatusRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode status record")
	}
	return r.kv.Set(ctx, rec.Key(), string(data))
}

// Transition moves the record of file to status to, after letting mutate
// fill in the remaining fields. The timestamp is set to the current time.
// Moves not allowed by domain.CanTransition are rejected.
func (r *StatusRegistry) Transition(ctx context.Context, stage domain.Stage, file string, to domain.Status, mutate func(*domain.StatusRecord)) (*domain.StatusRecord, error) {
	current, err := r.Get(ctx, stage, file)
	if err != nil {
		return nil, err
	}
	var from domain.Status
	rec := &domain.StatusRecord{Stage: stage, File: file}
	if current != nil {
		from = current.Status
		*rec = *current
	}
	if !domain.CanTransition(from, to) {
		return nil, errors.Newf("invalid status transition %q -> %q for %s", from, to, domain.StatusKey(stage, file))
	}
	rec.Status = to
	rec.Timestamp = r.now().UTC()
	if to != domain.StatusError {
		rec.ErrorMessage = ""
	}
	if mutate != nil {
		mutate(rec)
	}
	if err := r.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every decodable record of stage sorted by file name.
func (r *StatusRegistry) List(ctx context.Context, stage domain.Stage) ([]domain.StatusRecord, error) {
	prefix := domain.StatusPrefix(stage)
	values, err := r.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StatusRecord, 0, len(values))
	for key, raw := range values {
		if rec := decodeRecord(stage, strings.TrimPrefix(key, prefix), raw); rec != nil {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

func (r *StatusRegistry) PutStageSummary(ctx context.Context, stage domain.Stage, s domain.StageSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode stage summary")
	}
	return r.kv.Set(ctx, domain.StageSummaryKey(stage), string(data))
}

// GetStageSummary returns nil when the stage has not completed a tick yet.
func (r *StatusRegistry) GetStageSummary(ctx context.Context, stage domain.Stage) (*domain.StageSummary, error) {
	raw, err := r.kv.Get(ctx, domain.StageSummaryKey(stage))
	if domain.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.StageSummary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, nil
	}
	return &s, nil
}
