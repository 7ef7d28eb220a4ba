// Package service orchestrates the batch aggregate: it reads a batch fresh,
// applies the milestone rules, persists with an optimistic version check and
// dispatches notifications once the write is durable.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/media"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/milestone"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/store"
	"github.com/google/uuid"
)

const (
	maxUpdateAttempts = 5
	defaultListLimit  = 50
	maxListLimit      = 200
)

var (
	ErrBatchNotFound      = apperr.NotFound("batch not found")
	ErrDuplicateContract  = apperr.Conflict("contract id already exists")
	ErrConcurrentUpdate   = apperr.Conflict("batch was modified concurrently, retry")
	ErrUnknownRole        = apperr.Validation("unknown role")
	ErrAdminOnly          = apperr.Forbidden("only admin can perform this action")
	ErrNotMilestoneOwner  = apperr.Forbidden("milestone is assigned to another contractor")
	ErrNotBatchAgency     = apperr.Forbidden("batch belongs to another agency")
	ErrNotPermitted       = apperr.Forbidden("not permitted to view this batch")
	ErrMediaNotConfigured = apperr.Validation("payment media uploads are not enabled")
)

type Service struct {
	store      store.BatchStore
	dispatcher *events.Dispatcher
	media      media.Store

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides time.Now; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New wires the service. media may be nil when uploads are disabled.
func New(st store.BatchStore, d *events.Dispatcher, m media.Store, opts ...Option) *Service {
	if d == nil {
		d = events.NewDispatcher(nil)
	}
	s := &Service{
		store:      st,
		dispatcher: d,
		media:      m,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upload is a payment proof attached to a payment request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func checkRole(actor model.Actor) error {
	switch actor.Role {
	case model.RoleAdmin, model.RoleAgency, model.RoleContractor:
		return nil
	}
	return ErrUnknownRole
}

func requireAdmin(actor model.Actor) error {
	if err := checkRole(actor); err != nil {
		return err
	}
	if actor.Role != model.RoleAdmin {
		return ErrAdminOnly
	}
	return nil
}

// CreateBatch records a new contract. The contract id is checked before any
// write; the store's unique index catches the race between two creators.
func (s *Service) CreateBatch(ctx context.Context, actor model.Actor, req model.CreateBatchRequest) (model.Batch, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Batch{}, err
	}
	b, evs, err := milestone.NewBatch(req, actor, s.newID, s.now())
	if err != nil {
		return model.Batch{}, err
	}

	_, err = s.store.FindByContractID(ctx, b.ContractID)
	switch {
	case err == nil:
		return model.Batch{}, ErrDuplicateContract
	case !errors.Is(err, store.ErrNotFound):
		return model.Batch{}, apperr.Persistence(fmt.Errorf("find contract %s: %w", b.ContractID, err))
	}

	if err := s.store.Create(ctx, b); err != nil {
		if errors.Is(err, store.ErrDuplicateContract) {
			return model.Batch{}, ErrDuplicateContract
		}
		return model.Batch{}, apperr.Persistence(fmt.Errorf("create batch: %w", err))
	}

	slog.InfoContext(ctx, "batch_created",
		"batch_id", b.ID,
		"contract_id", b.ContractID,
		"agency_id", b.AgencyID,
		"milestones", len(b.Milestones),
	)
	s.dispatcher.Dispatch(ctx, evs...)
	return b, nil
}

func (s *Service) ApproveBatch(ctx context.Context, actor model.Actor, batchID string, req model.BatchStatusRequest) (model.Batch, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Batch{}, err
	}
	b, err := s.mutate(ctx, batchID, func(b *model.Batch, now time.Time) ([]events.Event, error) {
		return milestone.ApproveBatch(b, req.Status, now)
	})
	if err != nil {
		return model.Batch{}, err
	}
	slog.InfoContext(ctx, "batch_approved", "batch_id", b.ID, "contract_id", b.ContractID)
	return b, nil
}

// UpdateWorkStatus is open to the contractor assigned to the selected
// milestone and to the admin.
func (s *Service) UpdateWorkStatus(ctx context.Context, actor model.Actor, batchID string, req model.WorkStatusRequest) (model.WorkUpdateResult, error) {
	if err := checkRole(actor); err != nil {
		return model.WorkUpdateResult{}, err
	}
	if actor.Role == model.RoleAgency {
		return model.WorkUpdateResult{}, apperr.Forbidden("agency cannot update work status")
	}

	var updated int
	b, err := s.mutate(ctx, batchID, func(b *model.Batch, now time.Time) ([]events.Event, error) {
		if err := ownsMilestone(actor, b, req.MilestoneSelector); err != nil {
			return nil, err
		}
		n, evs, err := milestone.UpdateWorkStatus(b, req.MilestoneSelector, req.WorkStatus, req.WorkDetails, now)
		updated = n
		return evs, err
	})
	if err != nil {
		return model.WorkUpdateResult{}, err
	}
	slog.InfoContext(ctx, "work_status_updated",
		"batch_id", b.ID,
		"work_status", req.WorkStatus,
		"updated_count", updated,
	)
	return model.WorkUpdateResult{UpdatedCount: updated, Batch: b}, nil
}

func (s *Service) ApproveWork(ctx context.Context, actor model.Actor, batchID string, req model.ApproveWorkRequest) (model.ApprovalResult, error) {
	if err := requireAdmin(actor); err != nil {
		return model.ApprovalResult{}, err
	}
	var approved int
	b, err := s.mutate(ctx, batchID, func(b *model.Batch, now time.Time) ([]events.Event, error) {
		n, evs, err := milestone.ApproveWork(b, req.MilestoneSelector, now)
		approved = n
		return evs, err
	})
	if err != nil {
		return model.ApprovalResult{}, err
	}
	slog.InfoContext(ctx, "work_approved", "batch_id", b.ID, "approved_count", approved)
	return model.ApprovalResult{ApprovedCount: approved, Batch: b}, nil
}

// RecordPayment appends to the ledger picked by req.TransactionType. Agency
// funding may be reported by the batch's agency or the admin; contractor
// payouts only by the admin. A proof upload, if any, is stored first and
// only its reference is kept on the event.
func (s *Service) RecordPayment(ctx context.Context, actor model.Actor, batchID string, req model.PaymentRequest, upload *Upload) (model.Batch, error) {
	if err := checkRole(actor); err != nil {
		return model.Batch{}, err
	}
	dir, ok := model.ParsePaymentDirection(req.TransactionType)
	if !ok {
		return model.Batch{}, milestone.ErrInvalidTransactionType
	}
	switch {
	case dir == model.DirectionAuthorityToContractor && actor.Role != model.RoleAdmin:
		return model.Batch{}, apperr.Forbidden("only admin can pay contractors")
	case dir == model.DirectionAgencyToAuthority && actor.Role == model.RoleContractor:
		return model.Batch{}, apperr.Forbidden("contractor cannot record agency payments")
	}

	in := milestone.PaymentInput{
		TransactionID:   req.TransactionID,
		TransactionDate: req.TransactionDate,
		Amount:          req.Amount,
	}
	if upload != nil {
		ref, err := s.saveMedia(ctx, upload)
		if err != nil {
			return model.Batch{}, err
		}
		in.Media = ref
	}

	b, err := s.mutate(ctx, batchID, func(b *model.Batch, now time.Time) ([]events.Event, error) {
		if actor.Role == model.RoleAgency && b.AgencyID != actor.ID {
			return nil, ErrNotBatchAgency
		}
		return milestone.RecordPayment(b, req.MilestoneSelector, string(dir), in, now)
	})
	if err != nil {
		return model.Batch{}, err
	}
	slog.InfoContext(ctx, "payment_recorded",
		"batch_id", b.ID,
		"direction", string(dir),
		"transaction_id", req.TransactionID,
		"has_media", in.Media != "",
	)
	return b, nil
}

func (s *Service) saveMedia(ctx context.Context, u *Upload) (string, error) {
	if s.media == nil {
		return "", ErrMediaNotConfigured
	}
	ct, err := media.Validate(u.Filename, u.ContentType, u.Size)
	if err != nil {
		return "", err
	}
	ref, err := s.media.Save(ctx, u.Filename, ct, u.Size, u.Body)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return "", err
		}
		return "", apperr.Persistence(fmt.Errorf("save payment media: %w", err))
	}
	return ref, nil
}

// DownloadInvoice fills the caller's download slot on first use and returns
// the receipt.
func (s *Service) DownloadInvoice(ctx context.Context, actor model.Actor, batchID string, req model.InvoiceDownloadRequest) (milestone.InvoiceReceipt, error) {
	if err := checkRole(actor); err != nil {
		return milestone.InvoiceReceipt{}, err
	}
	var receipt milestone.InvoiceReceipt
	_, err := s.mutate(ctx, batchID, func(b *model.Batch, now time.Time) ([]events.Event, error) {
		if err := ownsMilestone(actor, b, req.MilestoneSelector); err != nil {
			return nil, err
		}
		r, evs, err := milestone.RecordDownload(b, req.MilestoneSelector, actor, now)
		receipt = r
		return evs, err
	})
	if err != nil {
		return milestone.InvoiceReceipt{}, err
	}
	slog.InfoContext(ctx, "invoice_downloaded",
		"batch_id", batchID,
		"milestone_id", receipt.MilestoneID,
		"role", actor.Role.String(),
		"first_download", receipt.FirstDownload,
		"late_days", receipt.LateDays,
	)
	return receipt, nil
}

// InvoiceQuote previews a download without recording it.
func (s *Service) InvoiceQuote(ctx context.Context, actor model.Actor, batchID string, sel model.MilestoneSelector) (milestone.Quote, error) {
	b, err := s.GetBatch(ctx, actor, batchID)
	if err != nil {
		return milestone.Quote{}, err
	}
	if err := ownsMilestone(actor, &b, sel); err != nil {
		return milestone.Quote{}, err
	}
	return milestone.InvoiceQuote(&b, sel, actor.Role, s.now())
}

func (s *Service) GetBatch(ctx context.Context, actor model.Actor, batchID string) (model.Batch, error) {
	if err := checkRole(actor); err != nil {
		return model.Batch{}, err
	}
	b, err := s.load(ctx, batchID)
	if err != nil {
		return model.Batch{}, err
	}
	if !canView(actor, &b) {
		return model.Batch{}, ErrNotPermitted
	}
	return b, nil
}

// ListBatches returns the newest batches visible to actor. limit is
// clamped to (0, maxListLimit].
func (s *Service) ListBatches(ctx context.Context, actor model.Actor, limit int) ([]model.Batch, error) {
	if err := checkRole(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var f store.ListFilter
	switch actor.Role {
	case model.RoleAgency:
		f.AgencyID = actor.ID
	case model.RoleContractor:
		f.ContractorID = actor.ID
	}
	out, err := s.store.List(ctx, f, limit)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("list batches: %w", err))
	}
	if out == nil {
		out = []model.Batch{}
	}
	return out, nil
}

func canView(actor model.Actor, b *model.Batch) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleAgency:
		return b.AgencyID == actor.ID
	case model.RoleContractor:
		for _, id := range b.ContractorIDs {
			if id == actor.ID {
				return true
			}
		}
	}
	return false
}

// ownsMilestone restricts contractors to milestones assigned to them. Other
// roles pass; their own rules apply later.
func ownsMilestone(actor model.Actor, b *model.Batch, sel model.MilestoneSelector) error {
	if actor.Role != model.RoleContractor {
		return nil
	}
	idx, err := milestone.Resolve(b, sel)
	if err != nil {
		return err
	}
	if b.Milestones[idx].ContractorID != actor.ID {
		return ErrNotMilestoneOwner
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (model.Batch, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Batch{}, ErrBatchNotFound
		}
		return model.Batch{}, apperr.Persistence(fmt.Errorf("get batch %s: %w", id, err))
	}
	return b, nil
}

// mutate runs apply against a fresh copy of the batch and writes it back
// conditional on the version that was read. On a version conflict the whole
// read-validate-apply cycle is repeated. Events are dispatched only after a
// successful write.
func (s *Service) mutate(ctx context.Context, id string, apply func(b *model.Batch, now time.Time) ([]events.Event, error)) (model.Batch, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return model.Batch{}, err
		}
		next := current.Clone()
		now := s.now()
		evs, err := apply(&next, now)
		if err != nil {
			return model.Batch{}, err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = now

		err = s.store.Update(ctx, next, current.Version)
		switch {
		case err == nil:
			s.dispatcher.Dispatch(ctx, evs...)
			return next, nil
		case errors.Is(err, store.ErrVersionConflict):
			slog.DebugContext(ctx, "batch_version_conflict", "batch_id", id, "attempt", attempt)
			continue
		case errors.Is(err, store.ErrNotFound):
			return model.Batch{}, ErrBatchNotFound
		default:
			return model.Batch{}, apperr.Persistence(fmt.Errorf("update batch %s: %w", id, err))
		}
	}
	slog.WarnContext(ctx, "batch_update_retries_exhausted", "batch_id", id, "attempts", maxUpdateAttempts)
	return model.Batch{}, ErrConcurrentUpdate
}
