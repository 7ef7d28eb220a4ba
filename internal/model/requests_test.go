package model

import (
	"encoding/json"
	"testing"
)

func TestWorkStatusRequest_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantIndex   int
		wantID      string
		wantStatus  string
		wantDetails string
	}{
		{"snake case", `{"milestone_index":1,"work_status":"completed","work_details":"done"}`, 1, "", "completed", "done"},
		{"camel case", `{"milestoneIndex":2,"workStatus":"30_percent","workDetails":"piling"}`, 2, "", "30_percent", "piling"},
		{"camel id", `{"milestoneId":"m-7","workStatus":"80_percent"}`, -1, "m-7", "80_percent", ""},
		{"snake wins", `{"milestone_index":0,"milestoneIndex":3,"work_status":"completed","workStatus":"pending"}`, 0, "", "completed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req WorkStatusRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if tt.wantIndex < 0 {
				if req.Index != nil {
					t.Errorf("Index = %d, want nil", *req.Index)
				}
			} else if req.Index == nil || *req.Index != tt.wantIndex {
				t.Errorf("Index = %v, want %d", req.Index, tt.wantIndex)
			}
			if req.ID != tt.wantID || req.WorkStatus != tt.wantStatus || req.WorkDetails != tt.wantDetails {
				t.Errorf("got %+v", req)
			}
		})
	}
}

func TestPaymentRequest_UnmarshalJSON(t *testing.T) {
	var req PaymentRequest
	body := `{"milestoneIndex":0,"transactionType":"agency_to_nhai","transactionId":"tx1","transactionDate":"2024-02-01","amount":"1500.50","payment_media":"https://evil.example/x.exe"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Index == nil || *req.Index != 0 {
		t.Errorf("Index = %v", req.Index)
	}
	if req.TransactionType != "agency_to_nhai" || req.TransactionID != "tx1" || req.TransactionDate != "2024-02-01" {
		t.Errorf("got %+v", req)
	}
	if req.Amount == nil || req.Amount.String() != "1500.5" {
		t.Errorf("Amount = %v", req.Amount)
	}
}

func TestSelectorOnlyRequests_UnmarshalJSON(t *testing.T) {
	var approve ApproveWorkRequest
	if err := json.Unmarshal([]byte(`{"milestoneIndex":4}`), &approve); err != nil {
		t.Fatal(err)
	}
	if approve.Index == nil || *approve.Index != 4 {
		t.Errorf("ApproveWorkRequest.Index = %v", approve.Index)
	}

	var dl InvoiceDownloadRequest
	if err := json.Unmarshal([]byte(`{"milestone_id":"m-1"}`), &dl); err != nil {
		t.Fatal(err)
	}
	if dl.ID != "m-1" || dl.Index != nil {
		t.Errorf("InvoiceDownloadRequest = %+v", dl)
	}

	if err := json.Unmarshal([]byte(`{"milestoneIndex":"x"}`), &dl); err == nil {
		t.Error("Unmarshal() expected error for non-numeric index")
	}
}
