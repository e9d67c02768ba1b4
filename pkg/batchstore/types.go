package batchstore

import "time"

// State is the lifecycle state of a recorded batch.
//
// NOTE: These values are persisted in batch.json and are part of the stable
// on-disk contract.
type State string

const (
	StateRunning State = "running"
	StateSuccess State = "success"
	StatePartial State = "partial"
	StateFailed  State = "failed"
	StateUnknown State = "unknown"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StatePartial, StateFailed:
		return true
	default:
		return false
	}
}

// StateFor returns the terminal state for a batch outcome.
func StateFor(total, succeeded int) State {
	switch {
	case succeeded >= total:
		return StateSuccess
	case succeeded == 0:
		return StateFailed
	default:
		return StatePartial
	}
}

// Failure is the persisted summary of one failed job.
type Failure struct {
	Task   int    `json:"task"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BatchRecord is the persistent record written to batch.json.
//
// New fields must be additive.
type BatchRecord struct {
	BatchID     string    `json:"batch_id"`
	State       State     `json:"state"`
	CommandFile string    `json:"command_file"`
	Selection   string    `json:"selection,omitempty"`
	LogDir      string    `json:"log_dir,omitempty"`
	Workers     int       `json:"workers"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	PID         int       `json:"pid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Failures  []Failure  `json:"failures,omitempty"`
	LogFiles  []string   `json:"log_files,omitempty"`
}
