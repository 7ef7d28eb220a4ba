package model

import (
	"strings"
	"time"
)

// BatchStatus is the contract-level approval state.
type BatchStatus string

const (
	BatchStatusPending  BatchStatus = "pending"
	BatchStatusApproved BatchStatus = "approved"
	BatchStatusRejected BatchStatus = "rejected"
)

// WorkStatus is the coarse progress of a milestone. Values are ordered; see Rank.
type WorkStatus string

const (
	WorkStatusPending   WorkStatus = "pending"
	WorkStatus30Percent WorkStatus = "30_percent"
	WorkStatus80Percent WorkStatus = "80_percent"
	WorkStatusCompleted WorkStatus = "completed"
)

const workStatusRankUnknown = -1

var workStatusOrder = []WorkStatus{
	WorkStatusPending,
	WorkStatus30Percent,
	WorkStatus80Percent,
	WorkStatusCompleted,
}

// Rank returns the position of w in the progress order, or -1 for unknown values.
func (w WorkStatus) Rank() int {
	for i, s := range workStatusOrder {
		if s == w {
			return i
		}
	}
	return workStatusRankUnknown
}

func (w WorkStatus) Valid() bool {
	return w.Rank() != workStatusRankUnknown
}

// Intermediate reports whether w is a partial-progress status (neither pending nor completed).
func (w WorkStatus) Intermediate() bool {
	return w == WorkStatus30Percent || w == WorkStatus80Percent
}

// MilestoneStatus is the coarse completion flag kept alongside WorkStatus.
type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// PaymentDirection selects which ledger of a milestone a payment is appended to.
type PaymentDirection string

const (
	DirectionAgencyToAuthority     PaymentDirection = "agency_to_authority"
	DirectionAuthorityToContractor PaymentDirection = "authority_to_contractor"
)

// ParsePaymentDirection accepts the canonical names and the legacy
// agency_to_nhai / nhai_to_contractor spellings.
func ParsePaymentDirection(s string) (PaymentDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(DirectionAgencyToAuthority), "agency_to_nhai":
		return DirectionAgencyToAuthority, true
	case string(DirectionAuthorityToContractor), "nhai_to_contractor":
		return DirectionAuthorityToContractor, true
	}
	return "", false
}

// PaymentEvent is one immutable entry in a milestone payment ledger.
type PaymentEvent struct {
	TransactionID   string        `json:"transaction_id" bson:"transaction_id" firestore:"transaction_id"`
	TransactionDate time.Time     `json:"transaction_date" bson:"transaction_date" firestore:"transaction_date"`
	PaymentMedia    string        `json:"payment_media,omitempty" bson:"payment_media,omitempty" firestore:"payment_media,omitempty"`
	Amount          string        `json:"amount" bson:"amount" firestore:"amount"` // Decimal as string
	PaymentStatus   PaymentStatus `json:"payment_status" bson:"payment_status" firestore:"payment_status"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at" firestore:"created_at"`
}

// DownloadSlot records the first invoice download for one role.
type DownloadSlot struct {
	Downloaded bool       `json:"downloaded" bson:"downloaded" firestore:"downloaded"`
	Date       *time.Time `json:"date,omitempty" bson:"date,omitempty" firestore:"date,omitempty"`
}

type InvoiceDownloads struct {
	Admin      DownloadSlot `json:"admin" bson:"admin" firestore:"admin"`
	Contractor DownloadSlot `json:"contractor" bson:"contractor" firestore:"contractor"`
}

// Milestone is one deliverable of a batch. It is owned by its batch and
// is addressed by ID or by its position in Batch.Milestones.
type Milestone struct {
	ID             string `json:"id" bson:"id" firestore:"id"`
	Heading        string `json:"heading" bson:"heading" firestore:"heading"`
	ContractorID   string `json:"contractor_id" bson:"contractor_id" firestore:"contractor_id"`
	ContractorName string `json:"contractor_name" bson:"contractor_name" firestore:"contractor_name"`
	Amount         string `json:"amount" bson:"amount" firestore:"amount"`             // owed to contractor
	BidAmount      string `json:"bid_amount" bson:"bid_amount" firestore:"bid_amount"` // owed by agency
	BidDuration    string `json:"bid_duration,omitempty" bson:"bid_duration,omitempty" firestore:"bid_duration,omitempty"`

	StartDate time.Time `json:"start_date" bson:"start_date" firestore:"start_date"`
	EndDate   time.Time `json:"end_date" bson:"end_date" firestore:"end_date"`

	Status       MilestoneStatus `json:"status" bson:"status" firestore:"status"`
	WorkStatus   WorkStatus      `json:"work_status" bson:"work_status" firestore:"work_status"`
	WorkDetails  string          `json:"work_details,omitempty" bson:"work_details,omitempty" firestore:"work_details,omitempty"`
	WorkApproved bool            `json:"work_approved" bson:"work_approved" firestore:"work_approved"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty" firestore:"completed_at,omitempty"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty" bson:"approved_at,omitempty" firestore:"approved_at,omitempty"`

	AgencyToNhai     []PaymentEvent   `json:"agency_to_nhai" bson:"agency_to_nhai" firestore:"agency_to_nhai"`
	NhaiToContractor []PaymentEvent   `json:"nhai_to_contractor" bson:"nhai_to_contractor" firestore:"nhai_to_contractor"`
	InvoiceDownloads InvoiceDownloads `json:"invoice_downloads" bson:"invoice_downloads" firestore:"invoice_downloads"`
}

// LatestAgencyPayment returns the most recent agency→authority event, if any.
func (m *Milestone) LatestAgencyPayment() (PaymentEvent, bool) {
	if len(m.AgencyToNhai) == 0 {
		return PaymentEvent{}, false
	}
	return m.AgencyToNhai[len(m.AgencyToNhai)-1], true
}

// LatestContractorPayment returns the most recent authority→contractor event, if any.
func (m *Milestone) LatestContractorPayment() (PaymentEvent, bool) {
	if len(m.NhaiToContractor) == 0 {
		return PaymentEvent{}, false
	}
	return m.NhaiToContractor[len(m.NhaiToContractor)-1], true
}

// GroupKey identifies milestones that move in lockstep: one contractor's
// repeated deliverable across several rows of a batch.
type GroupKey struct {
	ContractorID string
	Heading      string
}

func (m *Milestone) GroupKey() GroupKey {
	return GroupKey{ContractorID: m.ContractorID, Heading: m.Heading}
}

// Batch is one contract and the unit of persistence.
type Batch struct {
	ID              string      `json:"id" bson:"_id" firestore:"id"`
	ContractTitle   string      `json:"contract_title" bson:"contract_title" firestore:"contract_title"`
	ContractID      string      `json:"contract_id" bson:"contract_id" firestore:"contract_id"`
	AgencyID        string      `json:"agency_id" bson:"agency_id" firestore:"agency_id"`
	AgencyName      string      `json:"agency_name" bson:"agency_name" firestore:"agency_name"`
	AdminID         string      `json:"admin_id,omitempty" bson:"admin_id,omitempty" firestore:"admin_id,omitempty"`
	BidValue        string      `json:"bid_value,omitempty" bson:"bid_value,omitempty" firestore:"bid_value,omitempty"`
	ContractorValue string      `json:"contractor_value,omitempty" bson:"contractor_value,omitempty" firestore:"contractor_value,omitempty"`
	BidDuration     string      `json:"bid_duration,omitempty" bson:"bid_duration,omitempty" firestore:"bid_duration,omitempty"`
	Status          BatchStatus `json:"status" bson:"status" firestore:"status"`
	Milestones      []Milestone `json:"milestones" bson:"milestones" firestore:"milestones"`

	// ContractorIDs mirrors the distinct milestone contractors so stores can
	// index "batches for contractor X" without array-of-document queries.
	ContractorIDs []string `json:"contractor_ids,omitempty" bson:"contractor_ids,omitempty" firestore:"contractor_ids,omitempty"`

	Version   int64     `json:"version" bson:"version" firestore:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" firestore:"updated_at"`
}

// Clone returns a deep copy so a mutation attempt never aliases the stored document.
func (b Batch) Clone() Batch {
	out := b
	out.ContractorIDs = append([]string(nil), b.ContractorIDs...)
	out.Milestones = make([]Milestone, len(b.Milestones))
	for i, m := range b.Milestones {
		c := m
		c.AgencyToNhai = append([]PaymentEvent(nil), m.AgencyToNhai...)
		c.NhaiToContractor = append([]PaymentEvent(nil), m.NhaiToContractor...)
		c.CompletedAt = cloneTime(m.CompletedAt)
		c.ApprovedAt = cloneTime(m.ApprovedAt)
		c.InvoiceDownloads.Admin.Date = cloneTime(m.InvoiceDownloads.Admin.Date)
		c.InvoiceDownloads.Contractor.Date = cloneTime(m.InvoiceDownloads.Contractor.Date)
		out.Milestones[i] = c
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// DistinctContractors returns contractor IDs in first-seen milestone order.
func (b *Batch) DistinctContractors() []string {
	seen := make(map[string]bool, len(b.Milestones))
	var ids []string
	for _, m := range b.Milestones {
		if m.ContractorID == "" || seen[m.ContractorID] {
			continue
		}
		seen[m.ContractorID] = true
		ids = append(ids, m.ContractorID)
	}
	return ids
}
