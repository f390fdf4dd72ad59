package domain

import (
	"fmt"
	"time"
)

type Stage string

const (
	StageIngest Stage = "ingest"
	StageClean  Stage = "clean"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}

// StatusRecord is the registry value stored under a stage key. Only the owning
// stage writes it.
type StatusRecord struct {
	Stage     Stage     `json:"stage"`
	File      string    `json:"file"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	// SourceModified is the timestamp of the input the record was produced
	// from: the remote object for ingest, the raw artifact for clean.
	SourceModified time.Time `json:"source_modified,omitempty"`
	ETag           string    `json:"etag,omitempty"`
	Size           int64     `json:"size,omitempty"`
	Artifact       string    `json:"artifact,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// Key returns the registry key of the record.
func (r *StatusRecord) Key() string {
	return StatusKey(r.Stage, r.File)
}

// StatusKey returns the registry key for a file of a stage.
func StatusKey(stage Stage, file string) string {
	return StatusPrefix(stage) + file
}

// StatusPrefix returns the key prefix shared by all records of a stage.
func StatusPrefix(stage Stage) string {
	switch stage {
	case StageClean:
		return fmt.Sprintf(KeyCleanStatus, "")
	default:
		return fmt.Sprintf(KeyIngestStatus, "")
	}
}

var transitions = map[Status][]Status{
	"":               {StatusPending, StatusProcessing},
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusProcessing, StatusDone, StatusError},
	StatusDone:       {StatusProcessing},
	StatusError:      {StatusProcessing},
}

// CanTransition reports whether a record may move from one status to another.
// The empty status stands for an absent record. processing -> processing is
// allowed so a tick can take over a record left behind by a crashed run.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ObjectInfo describes a remote object as listed by the object store.
type ObjectInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
}

// IngestStale reports whether a remote object has to be downloaded again.
func IngestStale(obj ObjectInfo, rec *StatusRecord) bool {
	if rec == nil || rec.Status != StatusDone {
		return true
	}
	if obj.ETag != "" && rec.ETag != "" && obj.ETag != rec.ETag {
		return true
	}
	return obj.LastModified.After(rec.SourceModified)
}

// CleanStale reports whether a raw artifact modified at rawModified has to be
// cleaned again. Equal timestamps are not stale.
func CleanStale(rawModified time.Time, rec *StatusRecord) bool {
	if rec == nil || rec.Status != StatusDone {
		return true
	}
	ref := rec.SourceModified
	if ref.IsZero() {
		ref = rec.Timestamp
	}
	return rawModified.After(ref)
}

// StageSummary is the cycle level status a stage publishes after each tick,
// stored under sync_status (ingest) and cleaning_status (clean).
type StageSummary struct {
	Service   string    `json:"service"`
	Status    Status    `json:"status"`
	LastRun   time.Time `json:"last_run"`
	RunID     string    `json:"run_id,omitempty"`
	Seen      int       `json:"seen"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
}

// StageSummaryKey returns the registry key holding the cycle summary of a stage.
func StageSummaryKey(stage Stage) string {
	if stage == StageClean {
		return KeyCleaningStatus
	}
	return KeySyncStatus
}

// ProcessingEvent is a ledger entry for one status transition.
type ProcessingEvent struct {
	RunID      string    `json:"run_id"`
	Stage      Stage     `json:"stage"`
	File       string    `json:"file"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
