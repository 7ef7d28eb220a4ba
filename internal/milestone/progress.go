package milestone

import (
	"strings"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

var (
	ErrInvalidWorkStatus    = apperr.Validation("invalid work status")
	ErrWorkStatusRegression = apperr.Precondition("cannot revert to a previous work status")
)

// UpdateWorkStatus applies status to every milestone in the selected
// milestone's group. A regression on any member rejects the request before
// anything is changed. Details are only overwritten when non-empty.
func UpdateWorkStatus(b *model.Batch, sel model.MilestoneSelector, status string, details string, now time.Time) (int, []events.Event, error) {
	next := model.WorkStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return 0, nil, ErrInvalidWorkStatus
	}
	idx, err := Resolve(b, sel)
	if err != nil {
		return 0, nil, err
	}

	group := Group(b, idx)
	for _, i := range group {
		// Rows persisted before work tracking existed have no status yet.
		if b.Milestones[i].WorkStatus.Rank() > next.Rank() {
			return 0, nil, ErrWorkStatusRegression
		}
	}

	changed := false
	for _, i := range group {
		m := &b.Milestones[i]
		if m.WorkStatus != next {
			changed = true
		}
		m.WorkStatus = next
		if details != "" {
			m.WorkDetails = details
		}
		if next == model.WorkStatusCompleted {
			m.Status = model.MilestoneStatusCompleted
			if m.CompletedAt == nil {
				t := now
				m.CompletedAt = &t
			}
		}
	}

	if !changed {
		return len(group), nil, nil
	}

	var kind events.Kind
	switch {
	case next == model.WorkStatusCompleted:
		kind = events.KindWorkCompleted
	case next.Intermediate():
		kind = events.KindWorkProgress
	default:
		return len(group), nil, nil
	}
	ev := events.MilestoneEvent(kind, b, idx, now)
	ev.Count = len(group)
	return len(group), []events.Event{ev}, nil
}
