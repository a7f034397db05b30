package aggregator

import (
	"time"

	"github.com/Redish03/StepCounter/internal/domain"
)

// Thresholds tune the upload throttle. The defaults bound write amplification
// to at most one upload per 50 steps or per 5 minutes of activity.
type Thresholds struct {
	StepDelta int           // absolute-progress trigger
	MaxAge    time.Duration // freshness trigger
}

// DefaultThresholds returns the production policy.
func DefaultThresholds() Thresholds {
	return Thresholds{StepDelta: 50, MaxAge: 5 * time.Minute}
}

// shouldUpload is the pure upload decision. It returns true when enough steps
// accumulated since the last upload, or when the last upload is old enough and
// at least one new step happened. A day with zero new steps is never uploaded
// on time alone.
func shouldUpload(currentSteps int, cursor domain.UploadCursor, now time.Time, t Thresholds) bool {
	stepDelta := currentSteps - cursor.LastUploadedSteps
	timeDelta := now.Sub(cursor.LastUploadTime)

	if stepDelta >= t.StepDelta {
		return true
	}
	if timeDelta >= t.MaxAge && stepDelta > 0 {
		return true
	}
	return false
}
