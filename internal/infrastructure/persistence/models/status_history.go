package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
)

// StatusHistoryModel is an append-only row of license_status_history
type StatusHistoryModel struct {
	ID                uuid.UUID                    `gorm:"type:uuid;primary_key"`
	ApplicationID     uuid.UUID                    `gorm:"type:uuid;not null;index:idx_history_app_changed,priority:1"`
	FromStatus        *licensing.ApplicationStatus `gorm:"type:varchar(30)"`
	ToStatus          licensing.ApplicationStatus  `gorm:"type:varchar(30);not null"`
	ChangedBy         uuid.UUID                    `gorm:"type:uuid;not null"`
	ChangedAt         time.Time                    `gorm:"not null;index:idx_history_app_changed,priority:2"`
	Notes             string                       `gorm:"type:text"`
	IsSystemGenerated bool                         `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (StatusHistoryModel) TableName() string {
	return "license_status_history"
}

// ToDomain converts the row to a domain history entry
func (m *StatusHistoryModel) ToDomain() licensing.StatusHistoryEntry {
	return licensing.StatusHistoryEntry{
		ID:                m.ID,
		ApplicationID:     m.ApplicationID,
		FromStatus:        m.FromStatus,
		ToStatus:          m.ToStatus,
		ChangedBy:         m.ChangedBy,
		ChangedAt:         m.ChangedAt,
		Notes:             m.Notes,
		IsSystemGenerated: m.IsSystemGenerated,
	}
}

// StatusHistoryModelFromDomain creates a row from a domain history entry
func StatusHistoryModelFromDomain(e *licensing.StatusHistoryEntry) *StatusHistoryModel {
	return &StatusHistoryModel{
		ID:                e.ID,
		ApplicationID:     e.ApplicationID,
		FromStatus:        e.FromStatus,
		ToStatus:          e.ToStatus,
		ChangedBy:         e.ChangedBy,
		ChangedAt:         e.ChangedAt,
		Notes:             e.Notes,
		IsSystemGenerated: e.IsSystemGenerated,
	}
}
