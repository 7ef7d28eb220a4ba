package milestone

import (
	"fmt"
	"testing"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/shopspring/decimal"
)

var day0 = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func input(contractor, heading, amount string) model.MilestoneInput {
	return model.MilestoneInput{
		Heading:        heading,
		ContractorID:   contractor,
		ContractorName: "Contractor " + contractor,
		Amount:         dec(amount),
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-31",
	}
}

func newTestBatch(t *testing.T, ms ...model.MilestoneInput) *model.Batch {
	t.Helper()
	req := model.CreateBatchRequest{
		ContractTitle: "NH-48 widening",
		ContractID:    "NH48-001",
		AgencyID:      "ag1",
		AgencyName:    "State PWD",
		Milestones:    ms,
	}
	b, _, err := NewBatch(req, model.Actor{ID: "adm1", Role: model.RoleAdmin}, seqIDs(), day0)
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	return &b
}

func mustComplete(t *testing.T, b *model.Batch, idx int) {
	t.Helper()
	if _, _, err := UpdateWorkStatus(b, model.AtIndex(idx), "completed", "", day0); err != nil {
		t.Fatalf("UpdateWorkStatus(completed) error = %v", err)
	}
}

// readyForPayout brings milestone 0 to the point where the authority may pay.
func readyForPayout(t *testing.T, b *model.Batch) {
	t.Helper()
	mustComplete(t, b, 0)
	if _, _, err := ApproveWork(b, model.AtIndex(0), day0); err != nil {
		t.Fatalf("ApproveWork() error = %v", err)
	}
	in := PaymentInput{TransactionID: "txA", TransactionDate: "2024-02-01"}
	if _, err := RecordPayment(b, model.AtIndex(0), "agency_to_authority", in, day0); err != nil {
		t.Fatalf("RecordPayment(agency) error = %v", err)
	}
}
