package targeting

import (
	"math"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
)

// NextStatus applies the target state machine to t's current totals.
//
//	PENDING -> IN_PROGRESS   once total > 0
//	*       -> COMPLETED     once total >= target value (sticky)
//
// COMPLETED and CANCELLED are returned unchanged. OVERDUE is never produced
// here; see DisplayStatus.
func NextStatus(t models.Target) models.TargetStatus {
	switch t.Status {
	case models.TargetCompleted, models.TargetCancelled:
		return t.Status
	}
	total := t.TotalCollection()
	if t.TargetValue > 0 && total >= t.TargetValue {
		return models.TargetCompleted
	}
	if total > 0 {
		return models.TargetInProgress
	}
	if t.Status == "" {
		return models.TargetPending
	}
	return t.Status
}

// applyStatus recomputes t.Status and the fields derived from it.
func applyStatus(t *models.Target, now time.Time) {
	next := NextStatus(*t)
	if next == models.TargetCompleted && t.Status != models.TargetCompleted {
		at := now
		t.CompletedAt = &at
	}
	t.Status = next
	t.IsActive = next.IsActive()
}

// Progress returns total/target as a percentage clamped to [0, 100].
// A zero (or negative) target value yields 0.
func Progress(t models.Target) float64 {
	if t.TargetValue <= 0 {
		return 0
	}
	p := t.TotalCollection() / t.TargetValue * 100
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// DisplayStatus derives the status shown to users. A target past its end
// date that is neither COMPLETED nor CANCELLED displays as OVERDUE; the
// stored status is unaffected and collection remains possible.
func DisplayStatus(t models.Target, now time.Time) models.TargetStatus {
	if t.Status.IsTerminal() {
		return t.Status
	}
	if now.After(t.EndDate) {
		return models.TargetOverdue
	}
	return t.Status
}

// View is a target with its derived read-time fields.
type View struct {
	models.Target
	TotalCollection    float64             `json:"total_collection"`
	ProgressPercentage float64             `json:"progress_percentage"`
	DisplayStatus      models.TargetStatus `json:"display_status"`
	Remaining          float64             `json:"remaining"`
}

// NewView computes the derived fields of t as of now.
func NewView(t models.Target, now time.Time) View {
	remaining := t.TargetValue - t.TotalCollection()
	if remaining < 0 {
		remaining = 0
	}
	return View{
		Target:             t,
		TotalCollection:    t.TotalCollection(),
		ProgressPercentage: Progress(t),
		DisplayStatus:      DisplayStatus(t, now),
		Remaining:          remaining,
	}
}
