package licensing

import (
	"fmt"
	"time"
)

// Priority orders applications in the review queue
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority converts a raw string into a Priority. Empty input yields Normal.
func ParsePriority(raw string) (Priority, error) {
	if raw == "" {
		return PriorityNormal, nil
	}
	p := Priority(raw)
	if !p.IsValid() {
		return "", NewValidationError("priority", fmt.Sprintf("unknown priority %q", raw))
	}
	return p, nil
}

// IsValid checks if the priority is a known value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// String returns the string representation
func (p Priority) String() string {
	return string(p)
}

// SLA returns the target turnaround measured from the moment the priority applies
func (p Priority) SLA() time.Duration {
	switch p {
	case PriorityUrgent:
		return 24 * time.Hour
	case PriorityHigh:
		return 72 * time.Hour
	case PriorityNormal:
		return 168 * time.Hour
	case PriorityLow:
		return 336 * time.Hour
	}
	return 168 * time.Hour
}
