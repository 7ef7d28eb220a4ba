//go:build integration

package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/testutil"
)

const contractPrefix = "IT-"

var (
	admin      = model.Actor{ID: "it-admin", Role: model.RoleAdmin, Name: "Integration Admin"}
	agency     = model.Actor{ID: "it-agency", Role: model.RoleAgency}
	contractor = model.Actor{ID: "it-c1", Role: model.RoleContractor}
)

func getTestClient(t *testing.T) *Client {
	t.Helper()
	baseURL := os.Getenv("NHAI_API_URL")
	if baseURL == "" {
		t.Skip("set NHAI_API_URL (e.g. http://localhost:8080) to run integration tests")
	}
	c := NewClient(baseURL, os.Getenv("NHAI_JWT_SECRET"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.HealthCheck(ctx); err != nil {
		t.Skipf("service not available: %v", err)
	}

	if uri := os.Getenv("NHAI_MONGO_URI"); uri != "" {
		t.Cleanup(func() {
			d, err := NewDatabaseCleaner(uri, envOr("NHAI_MONGO_DB", "nhai"))
			if err != nil {
				t.Logf("cleanup skipped: %v", err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			defer d.Close(ctx)
			if n, err := d.CleanContracts(ctx, contractPrefix); err == nil {
				t.Logf("removed %d test batches", n)
			}
		})
	}
	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestEndToEndMilestonePayment(t *testing.T) {
	c := getTestClient(t)
	ctx := context.Background()

	req := testutil.BatchRequest(testutil.UniqueID(contractPrefix+"NH48"), agency.ID, "100000", contractor.ID)
	b, err := c.CreateBatch(ctx, admin, req)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	t.Logf("created batch %s (%s)", b.ID, b.ContractID)
	sel := map[string]any{"milestone_index": 0}

	steps := []struct {
		name   string
		actor  model.Actor
		action string
		body   map[string]any
		status int
		msg    string
	}{
		{"30 percent", contractor, "work-status", with(sel, "work_status", "30_percent"), http.StatusOK, ""},
		{"regression blocked", contractor, "work-status", with(sel, "work_status", "pending"), http.StatusBadRequest, "cannot revert to a previous work status"},
		{"completed", contractor, "work-status", with(sel, "work_status", "completed"), http.StatusOK, ""},
		{"payout before approval", admin, "payment", payment(sel, "authority_to_contractor", "txB"), http.StatusBadRequest, "cannot make payment for unapproved work"},
		{"approve work", admin, "approve-work", sel, http.StatusOK, ""},
		{"payout before funding", admin, "payment", payment(sel, "authority_to_contractor", "txB"), http.StatusBadRequest, "agency payment must be completed before authority can pay contractor"},
		{"agency funds", agency, "payment", payment(sel, "agency_to_authority", "txA"), http.StatusOK, ""},
		{"authority pays", admin, "payment", payment(sel, "authority_to_contractor", "txB"), http.StatusOK, ""},
		{"double payout", admin, "payment", payment(sel, "authority_to_contractor", "txC"), http.StatusBadRequest, "payment already made"},
	}
	for _, st := range steps {
		resp, err := c.Patch(ctx, st.actor, b.ID, st.action, st.body)
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if resp.Status != st.status || (st.msg != "" && resp.Message != st.msg) {
			t.Fatalf("%s: got %d %q, want %d %q", st.name, resp.Status, resp.Message, st.status, st.msg)
		}
	}

	resp, err := c.Request(ctx, contractor, http.MethodPost, "/v1/batches/"+b.ID+"/invoice-download", sel)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusBadRequest || resp.Message != "admin must download the invoice before contractor can access it" {
		t.Fatalf("contractor download before admin: %d %q", resp.Status, resp.Message)
	}

	if err := c.JSON(ctx, admin, http.MethodPost, "/v1/batches/"+b.ID+"/invoice-download", sel, nil); err != nil {
		t.Fatalf("admin download: %v", err)
	}
	if err := c.JSON(ctx, contractor, http.MethodPost, "/v1/batches/"+b.ID+"/invoice-download", sel, nil); err != nil {
		t.Fatalf("contractor download: %v", err)
	}

	resp, err = c.Request(ctx, admin, http.MethodPost, "/v1/batches", req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusConflict {
		t.Errorf("duplicate contract: %d %q", resp.Status, resp.Message)
	}
}

func with(base map[string]any, kv ...string) map[string]any {
	out := make(map[string]any, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func payment(sel map[string]any, direction, txID string) map[string]any {
	return with(sel,
		"transaction_type", direction,
		"transaction_id", txID,
		"transaction_date", time.Now().UTC().Format("2006-01-02"),
	)
}
