package domain

import "time"

// RootAudit summarises the collector root traffic of a run.
type RootAudit struct {
	Added      int      `json:"added"`
	Removed    int      `json:"removed"`
	Live       int      `json:"live"`
	Violations []string `json:"violations,omitempty"`
}

// Balanced reports whether every root was removed exactly once.
func (a RootAudit) Balanced() bool {
	return len(a.Violations) == 0 && a.Added-a.Removed == a.Live
}

// Report is the outcome of running one unit to exhaustion.
type Report struct {
	ID         string    `json:"id"`
	Unit       string    `json:"unit"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Drives     int       `json:"drives"`
	Collected  int       `json:"collected"`
	Stats      Stats     `json:"stats"`
	Roots      RootAudit `json:"roots"`
	Output     []string  `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Duration is the wall time the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
