package ledger

import "time"

// Status is the outcome of the latest attempt on a source.
type Status string

const (
	StatusAligned Status = "aligned"
	StatusFailed  Status = "failed"
)

// Entry is one ledger row.
type Entry struct {
	ID           int64     `json:"id"`
	SourcePath   string    `json:"source_path"`
	OutputPath   string    `json:"output_path,omitempty"`
	Status       Status    `json:"status"`
	Method       string    `json:"method,omitempty"`
	StartSec     float64   `json:"start_sec"`
	EndSec       float64   `json:"end_sec"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DurationSec is the length of the recorded cut.
func (e Entry) DurationSec() float64 {
	if e.Status != StatusAligned {
		return 0
	}
	return e.EndSec - e.StartSec
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status
	Limit  int
}
