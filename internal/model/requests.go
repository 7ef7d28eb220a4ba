package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CreateBatchRequest is the authority's request to record a new contract.
type CreateBatchRequest struct {
	ContractTitle   string           `json:"contract_title"`
	ContractID      string           `json:"contract_id"`
	AgencyID        string           `json:"agency_id"`
	AgencyName      string           `json:"agency_name"`
	BidValue        *decimal.Decimal `json:"bid_value,omitempty"`
	ContractorValue *decimal.Decimal `json:"contractor_value,omitempty"`
	BidDuration     string           `json:"bid_duration,omitempty"`
	Milestones      []MilestoneInput `json:"milestones"`
}

type MilestoneInput struct {
	Heading        string           `json:"heading"`
	ContractorID   string           `json:"contractor_id"`
	ContractorName string           `json:"contractor_name"`
	Amount         *decimal.Decimal `json:"amount"`
	BidAmount      *decimal.Decimal `json:"bid_amount,omitempty"`
	BidDuration    string           `json:"bid_duration,omitempty"`
	StartDate      string           `json:"start_date"`
	EndDate        string           `json:"end_date"`
}

// MilestoneSelector addresses a milestone by stable ID or, for legacy
// clients, by its index in the batch.
type MilestoneSelector struct {
	ID    string `json:"milestone_id,omitempty"`
	Index *int   `json:"milestone_index,omitempty"`
}

func (s MilestoneSelector) Empty() bool {
	return s.ID == "" && s.Index == nil
}

// AtIndex is a convenience for index-addressed callers.
func AtIndex(i int) MilestoneSelector {
	return MilestoneSelector{Index: &i}
}

type WorkStatusRequest struct {
	MilestoneSelector
	WorkStatus  string `json:"work_status"`
	WorkDetails string `json:"work_details,omitempty"`
}

type ApproveWorkRequest struct {
	MilestoneSelector
}

type PaymentRequest struct {
	MilestoneSelector
	TransactionType string           `json:"transaction_type"`
	TransactionID   string           `json:"transaction_id"`
	TransactionDate string           `json:"transaction_date"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
}

// selectorAliases carries the camelCase keys older clients send, matching
// the query and form parameter names.
type selectorAliases struct {
	MilestoneID    string `json:"milestoneId"`
	MilestoneIndex *int   `json:"milestoneIndex"`
}

func (a selectorAliases) fill(s *MilestoneSelector) {
	if s.ID == "" {
		s.ID = a.MilestoneID
	}
	if s.Index == nil {
		s.Index = a.MilestoneIndex
	}
}

func orAlias(v, alias string) string {
	if v != "" {
		return v
	}
	return alias
}

// The request types below decode both snake_case and camelCase keys. The
// snake_case value wins when both are present.

func (r *WorkStatusRequest) UnmarshalJSON(b []byte) error {
	type plain WorkStatusRequest
	var aux struct {
		plain
		selectorAliases
		WorkStatus  string `json:"workStatus"`
		WorkDetails string `json:"workDetails"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = WorkStatusRequest(aux.plain)
	aux.selectorAliases.fill(&r.MilestoneSelector)
	r.WorkStatus = orAlias(r.WorkStatus, aux.WorkStatus)
	r.WorkDetails = orAlias(r.WorkDetails, aux.WorkDetails)
	return nil
}

func (r *ApproveWorkRequest) UnmarshalJSON(b []byte) error {
	sel, err := decodeSelector(b)
	r.MilestoneSelector = sel
	return err
}

func (r *InvoiceDownloadRequest) UnmarshalJSON(b []byte) error {
	sel, err := decodeSelector(b)
	r.MilestoneSelector = sel
	return err
}

func decodeSelector(b []byte) (MilestoneSelector, error) {
	var aux struct {
		MilestoneSelector
		selectorAliases
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return MilestoneSelector{}, err
	}
	aux.selectorAliases.fill(&aux.MilestoneSelector)
	return aux.MilestoneSelector, nil
}

func (r *PaymentRequest) UnmarshalJSON(b []byte) error {
	type plain PaymentRequest
	var aux struct {
		plain
		selectorAliases
		TransactionType string `json:"transactionType"`
		TransactionID   string `json:"transactionId"`
		TransactionDate string `json:"transactionDate"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = PaymentRequest(aux.plain)
	aux.selectorAliases.fill(&r.MilestoneSelector)
	r.TransactionType = orAlias(r.TransactionType, aux.TransactionType)
	r.TransactionID = orAlias(r.TransactionID, aux.TransactionID)
	r.TransactionDate = orAlias(r.TransactionDate, aux.TransactionDate)
	return nil
}

type BatchStatusRequest struct {
	Status string `json:"status"`
}

type InvoiceDownloadRequest struct {
	MilestoneSelector
}

// WorkUpdateResult is returned by bulk work-status updates.
type WorkUpdateResult struct {
	UpdatedCount int   `json:"updated_count"`
	Batch        Batch `json:"batch"`
}

// ApprovalResult is returned by bulk work approval.
type ApprovalResult struct {
	ApprovedCount int   `json:"approved_count"`
	Batch         Batch `json:"batch"`
}
