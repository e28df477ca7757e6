package ingest

import "fmt"

// Status is the facade's load state.
type Status int

const (
	NotLoaded Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status name in JSON output.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is a snapshot of the facade. Progress only grows while a run is
// Loading; Err is set for Failed.
type State struct {
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	RunID    string `json:"run_id,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Err      error  `json:"-"`
}

func (s State) String() string {
	switch s.Status {
	case Loading:
		return fmt.Sprintf("%s (%d)", s.Status, s.Progress)
	case Failed:
		return fmt.Sprintf("%s: %v", s.Status, s.Err)
	default:
		return s.Status.String()
	}
}
