package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/media"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/middleware"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/service"
	"github.com/shopspring/decimal"
)

// multipart overhead allowed on top of the file itself
const formSlack = 256 << 10

var (
	errNoActor         = apperr.Forbidden("authorization required")
	errInvalidIndex    = apperr.Validation("milestone index must be a number")
	errInvalidLimit    = apperr.Validation("limit must be a number")
	errInvalidFormData = apperr.Validation("invalid form data")
)

type handlers struct {
	svc *service.Service
}

func (h *handlers) actor(r *http.Request) (model.Actor, error) {
	a, ok := middleware.GetActor(r.Context())
	if !ok {
		return model.Actor{}, errNoActor
	}
	return a, nil
}

func (h *handlers) createBatch(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req model.CreateBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	b, err := h.svc.CreateBatch(r.Context(), actor, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, "Batch created successfully", b)
}

func (h *handlers) listBatches(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			respondError(w, r, errInvalidLimit)
			return
		}
	}
	out, err := h.svc.ListBatches(r.Context(), actor, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "", out)
}

func (h *handlers) getBatch(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	b, err := h.svc.GetBatch(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "", b)
}

func (h *handlers) approveBatch(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req model.BatchStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	b, err := h.svc.ApproveBatch(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "Batch approved successfully", b)
}

func (h *handlers) updateWorkStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req model.WorkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.svc.UpdateWorkStatus(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "Work status updated successfully", res)
}

func (h *handlers) approveWork(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req model.ApproveWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.svc.ApproveWork(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "Work approved successfully", res)
}

// recordPayment accepts JSON or a multipart form carrying an optional
// "media" file as proof of payment.
func (h *handlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var (
		req    model.PaymentRequest
		upload *service.Upload
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var file multipart.File
		req, upload, file, err = parsePaymentForm(w, r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if file != nil {
			defer file.Close()
		}
	} else if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	b, err := h.svc.RecordPayment(r.Context(), actor, r.PathValue("id"), req, upload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "Payment recorded successfully", b)
}

func parsePaymentForm(w http.ResponseWriter, r *http.Request) (model.PaymentRequest, *service.Upload, multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+formSlack)
	if err := r.ParseMultipartForm(media.MaxUploadSize + formSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return model.PaymentRequest{}, nil, nil, media.ErrTooLarge
		}
		return model.PaymentRequest{}, nil, nil, errInvalidFormData
	}

	sel, err := selectorFrom(r.FormValue)
	if err != nil {
		return model.PaymentRequest{}, nil, nil, err
	}
	req := model.PaymentRequest{
		MilestoneSelector: sel,
		TransactionType:   r.FormValue("transaction_type"),
		TransactionID:     r.FormValue("transaction_id"),
		TransactionDate:   r.FormValue("transaction_date"),
	}
	if v := r.FormValue("amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return model.PaymentRequest{}, nil, nil, apperr.Validation("invalid amount")
		}
		req.Amount = &d
	}

	file, header, err := r.FormFile("media")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil, nil, nil
	case err != nil:
		return model.PaymentRequest{}, nil, nil, errInvalidFormData
	}
	upload := &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return req, upload, file, nil
}

func (h *handlers) invoiceQuote(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	sel, err := selectorFrom(r.URL.Query().Get)
	if err != nil {
		respondError(w, r, err)
		return
	}
	q, err := h.svc.InvoiceQuote(r.Context(), actor, r.PathValue("id"), sel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q.Eligibility.Reason, q)
}

func (h *handlers) downloadInvoice(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req model.InvoiceDownloadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	receipt, err := h.svc.DownloadInvoice(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, "Invoice download recorded", receipt)
}

// selectorFrom reads a milestone selector from query or form values. Both
// snake_case and the camelCase names used by older clients are accepted.
func selectorFrom(get func(string) string) (model.MilestoneSelector, error) {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := get(k); v != "" {
				return v
			}
		}
		return ""
	}
	sel := model.MilestoneSelector{ID: first("milestone_id", "milestoneId")}
	if v := first("milestone_index", "milestoneIndex"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return model.MilestoneSelector{}, errInvalidIndex
		}
		sel.Index = &i
	}
	return sel, nil
}
