package session

import "fmt"

// Status is the lifecycle state of a run.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusPaused
	StatusStopped
)

var statusNames = map[Status]string{
	StatusReady:   "ready",
	StatusRunning: "running",
	StatusPaused:  "paused",
	StatusStopped: "stopped",
}

// transitions lists every legal edge of the run state machine.
var transitions = map[Status][]Status{
	StatusReady:   {StatusRunning},
	StatusRunning: {StatusPaused, StatusStopped},
	StatusPaused:  {StatusRunning, StatusStopped},
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for st, name := range statusNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Type is the kind of run the user set up.
type Type string

const (
	TypeFree   Type = "free"
	TypeTarget Type = "target"
	TypeGuided Type = "guided"
)

// ParseType validates a run type, defaulting the empty string to free.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeFree:
		return TypeFree, nil
	case TypeTarget, TypeGuided:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// NeedsPlan reports whether the run type follows a training plan.
func (t Type) NeedsPlan() bool {
	return t == TypeTarget || t == TypeGuided
}
