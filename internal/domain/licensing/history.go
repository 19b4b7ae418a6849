package licensing

import (
	"time"

	"github.com/google/uuid"
)

// SystemActorID marks history entries written by background jobs
var SystemActorID = uuid.Nil

// StatusHistoryEntry is one immutable record of a status transition
type StatusHistoryEntry struct {
	ID                uuid.UUID
	ApplicationID     uuid.UUID
	FromStatus        *ApplicationStatus
	ToStatus          ApplicationStatus
	ChangedBy         uuid.UUID
	ChangedAt         time.Time
	Notes             string
	IsSystemGenerated bool
}

// NewStatusHistoryEntry records a move from one status to another.
// A nil from marks the initial entry of an application imported mid-workflow.
func NewStatusHistoryEntry(applicationID uuid.UUID, from *ApplicationStatus, to ApplicationStatus, changedBy uuid.UUID, notes string, system bool) *StatusHistoryEntry {
	return &StatusHistoryEntry{
		ID:                uuid.New(),
		ApplicationID:     applicationID,
		FromStatus:        from,
		ToStatus:          to,
		ChangedBy:         changedBy,
		ChangedAt:         time.Now(),
		Notes:             notes,
		IsSystemGenerated: system,
	}
}
