package milestone

import (
	"math"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/shopspring/decimal"
)

const (
	lateFeePercentPerDay = 5
	lateFeePercentCap    = 10
)

var (
	ErrNoCompletedMilestones    = apperr.Precondition("no completed milestones available for invoice")
	ErrContractorPaymentPending = apperr.Precondition("contractor payment must be completed before invoice download")
	ErrAdminDownloadPending     = apperr.Precondition("admin must download the invoice before contractor can access it")
	ErrRoleNotPermitted         = apperr.Forbidden("role not permitted to download invoices")
)

// Eligibility is the answer to "may this role download this invoice now".
// Reason is empty when Allowed.
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	err     error
}

// Err returns the typed error behind a denial, or nil.
func (e Eligibility) Err() error { return e.err }

func deny(err *apperr.Error) Eligibility {
	return Eligibility{Reason: err.Msg, err: err}
}

func CanDownload(role model.Role, m *model.Milestone) Eligibility {
	switch role {
	case model.RoleAdmin:
		if m.WorkStatus != model.WorkStatusCompleted {
			return deny(ErrNoCompletedMilestones)
		}
		if last, ok := m.LatestContractorPayment(); !ok || last.PaymentStatus != model.PaymentStatusCompleted {
			return deny(ErrContractorPaymentPending)
		}
	case model.RoleContractor:
		if m.WorkStatus != model.WorkStatusCompleted {
			return deny(ErrNoCompletedMilestones)
		}
		if !m.InvoiceDownloads.Admin.Downloaded {
			return deny(ErrAdminDownloadPending)
		}
	default:
		return deny(ErrRoleNotPermitted)
	}
	return Eligibility{Allowed: true}
}

// LateFee is the contractor-facing surcharge for a late invoice pickup.
type LateFee struct {
	LateDays   int             `json:"late_days"`
	Applied    bool            `json:"tax_applied"`
	Percentage int             `json:"tax_percentage"`
	Fee        decimal.Decimal `json:"late_fee"`
}

// ComputeLateFee charges 5% per whole day between the admin and contractor
// downloads, capped at 10%, rounded half away from zero to a whole unit.
// A missing date or a non-positive gap yields no surcharge.
func ComputeLateFee(adminDate, contractorDate *time.Time, total decimal.Decimal) LateFee {
	if adminDate == nil || contractorDate == nil {
		return LateFee{Fee: decimal.Zero}
	}
	days := int(math.Floor(contractorDate.Sub(*adminDate).Hours() / 24))
	if days <= 0 {
		return LateFee{LateDays: days, Fee: decimal.Zero}
	}
	pct := days * lateFeePercentPerDay
	if pct > lateFeePercentCap {
		pct = lateFeePercentCap
	}
	fee := total.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(0)
	return LateFee{LateDays: days, Applied: true, Percentage: pct, Fee: fee}
}

type InvoiceReceipt struct {
	BatchID        string          `json:"batch_id"`
	ContractTitle  string          `json:"contract_title"`
	ContractID     string          `json:"contract_id"`
	MilestoneID    string          `json:"milestone_id"`
	MilestoneIndex int             `json:"milestone_index"`
	Heading        string          `json:"milestone_heading"`
	ContractorID   string          `json:"contractor_id"`
	ContractorName string          `json:"contractor_name"`
	Role           model.Role      `json:"role"`
	DownloadedAt   time.Time       `json:"downloaded_at"`
	FirstDownload  bool            `json:"first_download"`
	LineItems      []LineItem      `json:"line_items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	LateFee
	TotalWithTax decimal.Decimal `json:"total_with_tax"`
}

// RecordDownload fills the caller's download slot on first use and returns
// the invoice figures computed from the stored slot dates.
func RecordDownload(b *model.Batch, sel model.MilestoneSelector, actor model.Actor, now time.Time) (InvoiceReceipt, []events.Event, error) {
	idx, err := Resolve(b, sel)
	if err != nil {
		return InvoiceReceipt{}, nil, err
	}
	m := &b.Milestones[idx]
	if el := CanDownload(actor.Role, m); !el.Allowed {
		return InvoiceReceipt{}, nil, el.Err()
	}

	slot := &m.InvoiceDownloads.Admin
	if actor.Role == model.RoleContractor {
		slot = &m.InvoiceDownloads.Contractor
	}
	first := !slot.Downloaded
	if first {
		t := now
		slot.Downloaded = true
		slot.Date = &t
	}

	receipt := buildReceipt(b, idx, actor.Role, *slot.Date, m.InvoiceDownloads.Contractor.Date)
	receipt.FirstDownload = first

	ev := events.MilestoneEvent(events.KindInvoiceDownloaded, b, idx, now)
	ev.Role = actor.Role
	ev.ActorID = actor.ID
	ev.ActorName = actor.Name
	return receipt, []events.Event{ev}, nil
}

// Quote is a read-only preview of an invoice download.
type Quote struct {
	Eligibility Eligibility     `json:"eligibility"`
	Receipt     *InvoiceReceipt `json:"receipt,omitempty"`
}

// InvoiceQuote reports eligibility and, when allowed, the figures a download
// at now would produce. The batch is not modified.
func InvoiceQuote(b *model.Batch, sel model.MilestoneSelector, role model.Role, now time.Time) (Quote, error) {
	idx, err := Resolve(b, sel)
	if err != nil {
		return Quote{}, err
	}
	m := &b.Milestones[idx]
	el := CanDownload(role, m)
	if !el.Allowed {
		return Quote{Eligibility: el}, nil
	}

	at := now
	slot := m.InvoiceDownloads.Admin
	if role == model.RoleContractor {
		slot = m.InvoiceDownloads.Contractor
	}
	if slot.Downloaded && slot.Date != nil {
		at = *slot.Date
	}
	contractorDate := m.InvoiceDownloads.Contractor.Date
	if role == model.RoleContractor {
		contractorDate = &at
	}
	r := buildReceipt(b, idx, role, at, contractorDate)
	r.FirstDownload = !slot.Downloaded
	return Quote{Eligibility: el, Receipt: &r}, nil
}

func buildReceipt(b *model.Batch, idx int, role model.Role, at time.Time, contractorDate *time.Time) InvoiceReceipt {
	m := &b.Milestones[idx]
	total, items := ContractorTotal(b, idx)
	fee := ComputeLateFee(m.InvoiceDownloads.Admin.Date, contractorDate, total)
	return InvoiceReceipt{
		BatchID:        b.ID,
		ContractTitle:  b.ContractTitle,
		ContractID:     b.ContractID,
		MilestoneID:    m.ID,
		MilestoneIndex: idx,
		Heading:        m.Heading,
		ContractorID:   m.ContractorID,
		ContractorName: m.ContractorName,
		Role:           role,
		DownloadedAt:   at,
		LineItems:      items,
		Subtotal:       total,
		LateFee:        fee,
		TotalWithTax:   total.Add(fee.Fee),
	}
}
