package milestone

import (
	"errors"
	"testing"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

func TestUpdateWorkStatus_Monotonic(t *testing.T) {
	order := []string{"pending", "30_percent", "80_percent", "completed"}

	for from := range order {
		for to := range order {
			if to >= from {
				continue
			}
			t.Run(order[from]+"->"+order[to], func(t *testing.T) {
				b := newTestBatch(t, input("c1", "Foundation", "10"))
				if _, _, err := UpdateWorkStatus(b, model.AtIndex(0), order[from], "", day0); err != nil {
					t.Fatalf("setup: %v", err)
				}
				before := b.Clone()

				_, evs, err := UpdateWorkStatus(b, model.AtIndex(0), order[to], "regress", day0.Add(time.Hour))
				if !errors.Is(err, ErrWorkStatusRegression) {
					t.Fatalf("UpdateWorkStatus() error = %v, want %v", err, ErrWorkStatusRegression)
				}
				if evs != nil {
					t.Error("rejected update must not emit events")
				}
				if b.Milestones[0].WorkStatus != before.Milestones[0].WorkStatus || b.Milestones[0].WorkDetails != before.Milestones[0].WorkDetails {
					t.Error("rejected update changed state")
				}
			})
		}
	}
}

func TestUpdateWorkStatus_InvalidStatus(t *testing.T) {
	b := newTestBatch(t, input("c1", "Foundation", "10"))
	if _, _, err := UpdateWorkStatus(b, model.AtIndex(0), "50_percent", "", day0); !errors.Is(err, ErrInvalidWorkStatus) {
		t.Errorf("error = %v, want %v", err, ErrInvalidWorkStatus)
	}
	if _, _, err := UpdateWorkStatus(b, model.MilestoneSelector{}, "completed", "", day0); !errors.Is(err, ErrSelectorRequired) {
		t.Errorf("error = %v, want %v", err, ErrSelectorRequired)
	}
}

func TestUpdateWorkStatus_CompletedAtSetOnce(t *testing.T) {
	b := newTestBatch(t, input("c1", "Foundation", "10"))

	_, evs, err := UpdateWorkStatus(b, model.AtIndex(0), "completed", "done", day0)
	if err != nil {
		t.Fatal(err)
	}
	m := b.Milestones[0]
	if m.CompletedAt == nil || !m.CompletedAt.Equal(day0) {
		t.Fatalf("CompletedAt = %v, want %v", m.CompletedAt, day0)
	}
	if m.Status != model.MilestoneStatusCompleted {
		t.Errorf("Status = %s, want completed", m.Status)
	}
	if len(evs) != 1 || evs[0].Kind != events.KindWorkCompleted {
		t.Errorf("events = %+v", evs)
	}

	_, evs, err = UpdateWorkStatus(b, model.AtIndex(0), "completed", "again", day0.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !b.Milestones[0].CompletedAt.Equal(day0) {
		t.Errorf("re-save moved CompletedAt to %v", b.Milestones[0].CompletedAt)
	}
	if evs != nil {
		t.Errorf("re-save at same status emitted %+v", evs)
	}
	if b.Milestones[0].WorkDetails != "again" {
		t.Errorf("WorkDetails = %q", b.Milestones[0].WorkDetails)
	}
}

func TestUpdateWorkStatus_BulkGroup(t *testing.T) {
	b := newTestBatch(t,
		input("c1", "Foundation", "10"),
		input("c1", "Foundation", "10"),
		input("c2", "Foundation", "10"),
		input("c1", "Paving", "10"),
	)

	n, evs, err := UpdateWorkStatus(b, model.AtIndex(1), "30_percent", "digging", day0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2", n)
	}
	for i, want := range []model.WorkStatus{"30_percent", "30_percent", "pending", "pending"} {
		if got := b.Milestones[i].WorkStatus; got != want {
			t.Errorf("milestone %d status = %s, want %s", i, got, want)
		}
	}
	if len(evs) != 1 || evs[0].Kind != events.KindWorkProgress || evs[0].Count != 2 || evs[0].MilestoneIndex != 1 {
		t.Errorf("events = %+v", evs)
	}
}

func TestUpdateWorkStatus_BulkRegressionRejectsAll(t *testing.T) {
	b := newTestBatch(t, input("c1", "Foundation", "10"), input("c1", "Foundation", "10"))
	b.Milestones[1].WorkStatus = model.WorkStatus80Percent

	_, _, err := UpdateWorkStatus(b, model.AtIndex(0), "30_percent", "", day0)
	if !errors.Is(err, ErrWorkStatusRegression) {
		t.Fatalf("error = %v, want %v", err, ErrWorkStatusRegression)
	}
	if b.Milestones[0].WorkStatus != model.WorkStatusPending {
		t.Error("a rejected bulk update changed a group member")
	}
}

func TestUpdateWorkStatus_PendingToPendingSilent(t *testing.T) {
	b := newTestBatch(t, input("c1", "Foundation", "10"))
	_, evs, err := UpdateWorkStatus(b, model.AtIndex(0), "pending", "", day0)
	if err != nil || evs != nil {
		t.Errorf("UpdateWorkStatus(pending) = %v, %v", evs, err)
	}
}
