package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypeCut          JobType = "cut"
	JobTypeConcat       JobType = "concat"
	JobTypeExtractAudio JobType = "extract_audio"
	JobTypeReplaceAudio JobType = "replace_audio"
)

// JobTypes lists every known job type.
var JobTypes = []JobType{JobTypeCut, JobTypeConcat, JobTypeExtractAudio, JobTypeReplaceAudio}

func (t JobType) Valid() bool {
	for _, known := range JobTypes {
		if t == known {
			return true
		}
	}
	return false
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status can only be left via an explicit retry.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one durable unit of deferred media-processing work. The store owns
// the record; workers and the queue hold snapshots and must re-fetch before
// trusting mutable fields.
type Job struct {
	ID           int64
	Type         JobType
	Status       JobStatus
	InputFiles   []string
	OutputFiles  []string
	Config       json.RawMessage
	CreatedAt    time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	ErrorMessage string
	RetryCount   int64
	Progress     float64
}

type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// JobLogEntry is an append-only audit record attached to one job. Entries are
// never mutated and removed only when the owning job is deleted.
type JobLogEntry struct {
	ID        int64
	JobID     int64
	Timestamp time.Time
	Level     LogLevel
	Message   string
}

// StatusUpdate carries the optional fields of a status transition. Nil and
// empty fields are left untouched in the store.
type StatusUpdate struct {
	Progress     *float64
	OutputFiles  []string
	ErrorMessage string
}
