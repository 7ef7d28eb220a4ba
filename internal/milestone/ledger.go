package milestone

import (
	"strings"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransactionType = apperr.Validation("invalid transaction type")
	ErrTransactionRequired    = apperr.Validation("transaction id and transaction date are required")
	ErrInvalidTransactionDate = apperr.Validation("invalid transaction date")
	ErrInvalidAmount          = apperr.Validation("invalid amount")
	ErrPayIncompleteWork      = apperr.Precondition("cannot make payment for incomplete work")
	ErrPayUnapprovedWork      = apperr.Precondition("cannot make payment for unapproved work")
	ErrAgencyPaymentPending   = apperr.Precondition("agency payment must be completed before authority can pay contractor")
	ErrAlreadyPaid            = apperr.Precondition("payment already made")
	ErrDuplicateTransaction   = apperr.Conflict("transaction already recorded")
)

// PaymentInput is one payment as reported by the paying party. Media is the
// reference returned by the media store, if a proof was uploaded.
type PaymentInput struct {
	TransactionID   string
	TransactionDate string
	Media           string
	Amount          *decimal.Decimal
}

// RecordPayment appends a completed payment event to the ledger selected by
// direction. Agency funding has no work precondition; authority payouts
// require completed, approved work backed by a completed agency payment.
func RecordPayment(b *model.Batch, sel model.MilestoneSelector, direction string, in PaymentInput, now time.Time) ([]events.Event, error) {
	dir, ok := model.ParsePaymentDirection(direction)
	if !ok {
		return nil, ErrInvalidTransactionType
	}
	idx, err := Resolve(b, sel)
	if err != nil {
		return nil, err
	}
	txID := strings.TrimSpace(in.TransactionID)
	if txID == "" || strings.TrimSpace(in.TransactionDate) == "" {
		return nil, ErrTransactionRequired
	}
	txDate, ok := parseDate(in.TransactionDate)
	if !ok {
		return nil, ErrInvalidTransactionDate
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	m := &b.Milestones[idx]
	var ledger *[]model.PaymentEvent
	var amount string
	var kind events.Kind

	switch dir {
	case model.DirectionAgencyToAuthority:
		ledger, amount, kind = &m.AgencyToNhai, m.BidAmount, events.KindAgencyPayment
	case model.DirectionAuthorityToContractor:
		if err := CanPayContractor(m); err != nil {
			return nil, err
		}
		ledger, amount, kind = &m.NhaiToContractor, m.Amount, events.KindContractorPayment
	}

	for _, p := range *ledger {
		if p.TransactionID == txID {
			return nil, ErrDuplicateTransaction
		}
	}
	if in.Amount != nil && !in.Amount.IsZero() {
		amount = in.Amount.String()
	}
	if amount == "" {
		amount = "0"
	}

	*ledger = append(*ledger, model.PaymentEvent{
		TransactionID:   txID,
		TransactionDate: txDate,
		PaymentMedia:    in.Media,
		Amount:          amount,
		PaymentStatus:   model.PaymentStatusCompleted,
		CreatedAt:       now,
	})

	ev := events.MilestoneEvent(kind, b, idx, now)
	ev.TransactionID = txID
	ev.Amount = amount
	return []events.Event{ev}, nil
}

// CanPayContractor reports the first unmet precondition for an authority
// payout on m, or nil.
func CanPayContractor(m *model.Milestone) error {
	if m.WorkStatus != model.WorkStatusCompleted {
		return ErrPayIncompleteWork
	}
	if !m.WorkApproved {
		return ErrPayUnapprovedWork
	}
	if last, ok := m.LatestAgencyPayment(); !ok || last.PaymentStatus != model.PaymentStatusCompleted {
		return ErrAgencyPaymentPending
	}
	for _, p := range m.NhaiToContractor {
		if p.PaymentStatus == model.PaymentStatusCompleted {
			return ErrAlreadyPaid
		}
	}
	return nil
}
