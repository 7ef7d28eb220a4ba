// Package milestone holds the pure state-machine rules for batches and their
// milestones. Nothing here touches storage or transports: every function
// mutates the batch it is given and returns the events the mutation implies.
package milestone

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrSelectorRequired  = apperr.Validation("milestone index or id is required")
	ErrSelectorMismatch  = apperr.Validation("milestone index and id refer to different milestones")
	ErrMilestoneNotFound = apperr.NotFound("milestone not found")
	ErrBatchNotPending   = apperr.Precondition("only pending batches can be approved")
	ErrStatusNotAllowed  = apperr.Validation("only approval status is allowed")
)

// Resolve returns the position of the selected milestone. An ID takes
// precedence; when both are given they must agree.
func Resolve(b *model.Batch, sel model.MilestoneSelector) (int, error) {
	if sel.Empty() {
		return 0, ErrSelectorRequired
	}
	if sel.ID != "" {
		for i := range b.Milestones {
			if b.Milestones[i].ID == sel.ID {
				if sel.Index != nil && *sel.Index != i {
					return 0, ErrSelectorMismatch
				}
				return i, nil
			}
		}
		return 0, ErrMilestoneNotFound
	}
	idx := *sel.Index
	if idx < 0 || idx >= len(b.Milestones) {
		return 0, ErrMilestoneNotFound
	}
	return idx, nil
}

// Group returns the positions of every milestone sharing the (contractor,
// heading) key of the milestone at idx, in batch order. idx is always included.
func Group(b *model.Batch, idx int) []int {
	key := b.Milestones[idx].GroupKey()
	var out []int
	for i := range b.Milestones {
		if b.Milestones[i].GroupKey() == key {
			out = append(out, i)
		}
	}
	return out
}

// LineItem is one completed milestone on an invoice.
type LineItem struct {
	MilestoneID string          `json:"milestone_id"`
	Heading     string          `json:"heading"`
	Amount      decimal.Decimal `json:"amount"`
}

// ContractorTotal sums the contractor amount across completed milestones of
// the group containing idx.
func ContractorTotal(b *model.Batch, idx int) (decimal.Decimal, []LineItem) {
	total := decimal.Zero
	var items []LineItem
	for _, i := range Group(b, idx) {
		m := &b.Milestones[i]
		if m.WorkStatus != model.WorkStatusCompleted {
			continue
		}
		amt := parseAmount(m.Amount)
		total = total.Add(amt)
		items = append(items, LineItem{MilestoneID: m.ID, Heading: m.Heading, Amount: amt})
	}
	return total, items
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NewBatch validates req in full and builds a pending batch. No partial batch
// is ever returned: the first invalid milestone aborts the whole request.
func NewBatch(req model.CreateBatchRequest, admin model.Actor, newID func() string, now time.Time) (model.Batch, []events.Event, error) {
	switch {
	case strings.TrimSpace(req.ContractTitle) == "":
		return model.Batch{}, nil, apperr.Validation("contract title is required")
	case strings.TrimSpace(req.ContractID) == "":
		return model.Batch{}, nil, apperr.Validation("contract id is required")
	case strings.TrimSpace(req.AgencyID) == "":
		return model.Batch{}, nil, apperr.Validation("agency id is required")
	case len(req.Milestones) == 0:
		return model.Batch{}, nil, apperr.Validation("at least one milestone is required")
	}

	milestones := make([]model.Milestone, 0, len(req.Milestones))
	for i, in := range req.Milestones {
		m, err := newMilestone(i, in, newID)
		if err != nil {
			return model.Batch{}, nil, err
		}
		milestones = append(milestones, m)
	}

	b := model.Batch{
		ID:            newID(),
		ContractTitle: strings.TrimSpace(req.ContractTitle),
		ContractID:    strings.TrimSpace(req.ContractID),
		AgencyID:      req.AgencyID,
		AgencyName:    req.AgencyName,
		AdminID:       admin.ID,
		BidDuration:   req.BidDuration,
		Status:        model.BatchStatusPending,
		Milestones:    milestones,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.BidValue != nil {
		b.BidValue = req.BidValue.String()
	}
	if req.ContractorValue != nil {
		b.ContractorValue = req.ContractorValue.String()
	}
	b.ContractorIDs = b.DistinctContractors()

	ev := events.BatchEvent(events.KindBatchCreated, &b, now)
	ev.ContractorIDs = b.ContractorIDs
	return b, []events.Event{ev}, nil
}

func newMilestone(i int, in model.MilestoneInput, newID func() string) (model.Milestone, error) {
	if strings.TrimSpace(in.Heading) == "" || in.Amount == nil ||
		strings.TrimSpace(in.ContractorID) == "" || strings.TrimSpace(in.ContractorName) == "" ||
		in.StartDate == "" || in.EndDate == "" {
		return model.Milestone{}, apperr.Validation(fmt.Sprintf(
			"milestone %d: heading, amount, dates and contractor are required", i+1))
	}
	if !in.Amount.IsPositive() {
		return model.Milestone{}, apperr.Validation(fmt.Sprintf("milestone %d: amount must be positive", i+1))
	}
	if in.BidAmount != nil && in.BidAmount.IsNegative() {
		return model.Milestone{}, apperr.Validation(fmt.Sprintf("milestone %d: bid amount must not be negative", i+1))
	}
	start, ok := parseDate(in.StartDate)
	if !ok {
		return model.Milestone{}, apperr.Validation(fmt.Sprintf("milestone %d: invalid start date", i+1))
	}
	end, ok := parseDate(in.EndDate)
	if !ok {
		return model.Milestone{}, apperr.Validation(fmt.Sprintf("milestone %d: invalid end date", i+1))
	}
	if end.Before(start) {
		return model.Milestone{}, apperr.Validation("end date must be after start date for each milestone")
	}

	bid := *in.Amount
	if in.BidAmount != nil {
		bid = *in.BidAmount
	}
	return model.Milestone{
		ID:               newID(),
		Heading:          strings.TrimSpace(in.Heading),
		ContractorID:     strings.TrimSpace(in.ContractorID),
		ContractorName:   strings.TrimSpace(in.ContractorName),
		Amount:           in.Amount.String(),
		BidAmount:        bid.String(),
		BidDuration:      in.BidDuration,
		StartDate:        start,
		EndDate:          end,
		Status:           model.MilestoneStatusPending,
		WorkStatus:       model.WorkStatusPending,
		AgencyToNhai:     []model.PaymentEvent{},
		NhaiToContractor: []model.PaymentEvent{},
	}, nil
}

// ApproveBatch moves a pending batch to approved. The only accepted target
// status is "approved".
func ApproveBatch(b *model.Batch, status string, now time.Time) ([]events.Event, error) {
	if model.BatchStatus(strings.ToLower(strings.TrimSpace(status))) != model.BatchStatusApproved {
		return nil, ErrStatusNotAllowed
	}
	if b.Status != model.BatchStatusPending {
		return nil, ErrBatchNotPending
	}
	b.Status = model.BatchStatusApproved
	b.UpdatedAt = now

	ev := events.BatchEvent(events.KindBatchApproved, b, now)
	ev.ContractorIDs = b.DistinctContractors()
	return []events.Event{ev}, nil
}
