package domain

import "time"

// StatusLevel is the coarse health assessment of a SecuritySnapshot
type StatusLevel string

const (
	StatusOK       StatusLevel = "OK"
	StatusWarning  StatusLevel = "WARNING"
	StatusCritical StatusLevel = "CRITICAL"
)

// Rank orders levels so that OK < WARNING < CRITICAL
func (l StatusLevel) Rank() int {
	switch l {
	case StatusCritical:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// RequestEvent is one inbound request seen by the metrics window
type RequestEvent struct {
	At     time.Time
	Source string
}

// SourceCount is a caller and how many requests it made inside the window
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// SecuritySnapshot is a point-in-time summary of the metrics window
type SecuritySnapshot struct {
	Since            time.Time     `json:"since"`
	RPM              int           `json:"rpm"`
	UniqueSources    int           `json:"uniqueSources"`
	RequestsInWindow int           `json:"requestsInWindow"`
	TotalResponses   int           `json:"totalResponses"`
	ErrorRatio       float64       `json:"errorRatio"`
	StatusLevel      StatusLevel   `json:"statusLevel"`
	TopSources       []SourceCount `json:"topSources"`
	DisasterMode     bool          `json:"disasterMode"`
	Notes            []string      `json:"notes,omitempty"`
}

// TriggerMode tells whether a backup was requested by an operator or by the evaluator
type TriggerMode string

const (
	TriggerAuto   TriggerMode = "auto"
	TriggerManual TriggerMode = "manual"
)

// TriggerResult is the outcome of a backup trigger attempt
type TriggerResult struct {
	Triggered bool   `json:"triggered"`
	Status    int    `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BackupNotification is the payload delivered to the backup webhook
type BackupNotification struct {
	Action   string           `json:"action"`
	At       time.Time        `json:"at"`
	Mode     TriggerMode      `json:"mode"`
	Snapshot SecuritySnapshot `json:"snapshot"`
}

// BackupState is the controller's view of past triggers
type BackupState struct {
	LastTrigger  time.Time `json:"lastTrigger,omitzero"`
	DisasterMode bool      `json:"disasterMode"`
	Configured   bool      `json:"configured"`
}
