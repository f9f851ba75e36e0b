package model

import "time"

// ImportState is the lifecycle position of a submitted import.
type ImportState string

const (
	ImportQueued    ImportState = "queued"
	ImportRunning   ImportState = "running"
	ImportSucceeded ImportState = "succeeded"
	ImportFailed    ImportState = "failed"
)

// ImportStatus is what the service reports about one submission.
type ImportStatus struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userID"`
	ImportType string      `json:"importType"`
	State      ImportState `json:"state"`
	// Scores counts canonical scores parsed; Added counts those not already stored.
	Scores int `json:"scores"`
	Added  int `json:"added"`
	// Classes is keyed by "game:playtype".
	Classes     map[string]Classes `json:"classes,omitempty"`
	Error       string             `json:"error,omitempty"`
	ErrorKind   string             `json:"errorKind,omitempty"`
	SubmittedAt time.Time          `json:"submittedAt"`
	FinishedAt  *time.Time         `json:"finishedAt,omitempty"`
}

// Done reports whether the import reached a terminal state.
func (s ImportStatus) Done() bool {
	return s.State == ImportSucceeded || s.State == ImportFailed
}

// Flatten keys achievements by their pair name for reporting.
func (a Achievements) Flatten() map[string]Classes {
	if len(a) == 0 {
		return nil
	}
	out := make(map[string]Classes, len(a))
	for gpt, c := range a {
		out[gpt.String()] = c
	}
	return out
}
