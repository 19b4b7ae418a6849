package licensing

import (
	"time"

	"github.com/google/uuid"
)

// Statistics summarises applications globally or for one applicant
type Statistics struct {
	UserID                *uuid.UUID
	Total                 int64
	ByStatus              map[ApplicationStatus]int64
	ByType                map[LicenseType]int64
	AverageProcessingDays float64
	ProcessedCount        int64
	GeneratedAt           time.Time
}

// NewStatistics returns zeroed statistics with every status and type present
func NewStatistics(userID *uuid.UUID) *Statistics {
	s := &Statistics{
		UserID:      userID,
		ByStatus:    make(map[ApplicationStatus]int64, len(AllStatuses())),
		ByType:      make(map[LicenseType]int64, len(AllLicenseTypes())),
		GeneratedAt: time.Now(),
	}
	for _, st := range AllStatuses() {
		s.ByStatus[st] = 0
	}
	for _, t := range AllLicenseTypes() {
		s.ByType[t] = 0
	}
	return s
}

// Add folds one application's status and type into the counts
func (s *Statistics) Add(status ApplicationStatus, t LicenseType, count int64) {
	s.ByStatus[status] += count
	s.ByType[t] += count
	s.Total += count
}

// SetAverage records the mean processing days over count decided applications
func (s *Statistics) SetAverage(sumDays float64, count int64) {
	s.ProcessedCount = count
	if count == 0 {
		s.AverageProcessingDays = 0
		return
	}
	s.AverageProcessingDays = sumDays / float64(count)
}

// Count returns the number of applications in status
func (s *Statistics) Count(status ApplicationStatus) int64 {
	return s.ByStatus[status]
}

// IsGlobal reports whether the statistics cover every applicant
func (s *Statistics) IsGlobal() bool {
	return s.UserID == nil
}
