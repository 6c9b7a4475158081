package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanComplete Type = iota + 1
	GroupFound
	GroupAccepted
	GroupRejected
	PathLinked
	PathSkipped
	PathFailed
	Done
)

var typeNames = [...]string{
	ScanComplete:  "ScanComplete",
	GroupFound:    "GroupFound",
	GroupAccepted: "GroupAccepted",
	GroupRejected: "GroupRejected",
	PathLinked:    "PathLinked",
	PathSkipped:   "PathSkipped",
	PathFailed:    "PathFailed",
	Done:          "Done",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // affected path (or canonical path for group events)
	Canonical string // canonical path for link events
	Size      int64  // file size, or reclaimable bytes for group events
	Members   int    // duplicate paths in the group (group events)
	Error     error
}
