package events

import (
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

// Kind names a committed domain transition.
type Kind string

const (
	KindBatchCreated      Kind = "batch.created"
	KindBatchApproved     Kind = "batch.approved"
	KindWorkProgress      Kind = "work.progress"
	KindWorkCompleted     Kind = "work.completed"
	KindWorkApproved      Kind = "work.approved"
	KindAgencyPayment     Kind = "payment.agency_received"
	KindContractorPayment Kind = "payment.contractor_sent"
	KindInvoiceDownloaded Kind = "invoice.downloaded"
)

// Event is emitted by the milestone rules after a successful mutation.
// Everything Fanout needs is carried here so that notification shape never
// depends on a clock or a store read.
type Event struct {
	Kind Kind

	BatchID       string
	ContractID    string
	ContractTitle string
	AgencyID      string
	AgencyName    string
	AdminID       string

	// ContractorIDs is set for batch-level events, in milestone order.
	ContractorIDs []string

	ContractorID   string
	ContractorName string
	MilestoneID    string
	MilestoneIndex int
	Heading        string
	WorkStatus     model.WorkStatus
	Count          int

	TransactionID string
	Amount        string

	Role      model.Role
	ActorID   string
	ActorName string

	OccurredAt time.Time
}

// BatchEvent fills the batch-scoped fields of an Event.
func BatchEvent(kind Kind, b *model.Batch, at time.Time) Event {
	return Event{
		Kind:          kind,
		BatchID:       b.ID,
		ContractID:    b.ContractID,
		ContractTitle: b.ContractTitle,
		AgencyID:      b.AgencyID,
		AgencyName:    b.AgencyName,
		AdminID:       b.AdminID,
		OccurredAt:    at,
	}
}

// MilestoneEvent fills batch and milestone fields for the milestone at idx.
func MilestoneEvent(kind Kind, b *model.Batch, idx int, at time.Time) Event {
	ev := BatchEvent(kind, b, at)
	m := &b.Milestones[idx]
	ev.ContractorID = m.ContractorID
	ev.ContractorName = m.ContractorName
	ev.MilestoneID = m.ID
	ev.MilestoneIndex = idx
	ev.Heading = m.Heading
	ev.WorkStatus = m.WorkStatus
	return ev
}
