package milestone

import (
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

var ErrApproveIncomplete = apperr.Precondition("cannot approve work that is not completed")

// ApproveWork approves every completed member of the selected milestone's
// group. completedAt and approvedAt are stamped with now on each call, so
// re-approval refreshes both and notifies again.
func ApproveWork(b *model.Batch, sel model.MilestoneSelector, now time.Time) (int, []events.Event, error) {
	idx, err := Resolve(b, sel)
	if err != nil {
		return 0, nil, err
	}
	if b.Milestones[idx].WorkStatus != model.WorkStatusCompleted {
		return 0, nil, ErrApproveIncomplete
	}

	approved := 0
	for _, i := range Group(b, idx) {
		m := &b.Milestones[i]
		if m.WorkStatus != model.WorkStatusCompleted {
			continue
		}
		m.WorkApproved = true
		completed, approvedAt := now, now
		m.CompletedAt = &completed
		m.ApprovedAt = &approvedAt
		approved++
	}

	ev := events.MilestoneEvent(events.KindWorkApproved, b, idx, now)
	ev.Count = approved
	return approved, []events.Event{ev}, nil
}
