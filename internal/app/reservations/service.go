package reservations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hotelier/internal/app/outbox"
	"hotelier/internal/domain/pricing"
	"hotelier/internal/domain/reservation"
	"hotelier/internal/domain/resource"
	"hotelier/internal/domain/shared/daterange"
	"hotelier/internal/domain/shared/money"
)

// Actor is the identity resolved by the upstream auth collaborator. The
// engine trusts it but still enforces ownership checks for guests.
type Actor struct {
	GuestID string
	StaffID string
	Role    string
}

func (a Actor) IsStaff() bool {
	switch strings.ToLower(a.Role) {
	case "staff", "admin":
		return true
	}
	return false
}

func (a Actor) ident() string {
	if a.StaffID != "" {
		return a.StaffID
	}
	return a.GuestID
}

// Service owns the reservation lifecycle: admission via the interval-overlap
// test, guarded status transitions, the payment ledger, and availability
// summaries. All writes serialize through keyed mutexes with the repository
// version check as the cross-process backstop.
type Service struct {
	reservations reservation.Repository
	resources    resource.Repository
	quoter       pricing.Quoter
	box          outbox.Outbox
	encoder      outbox.EventEncoder
	logger       *slog.Logger
	now          func() time.Time

	resourceLocks    *keyedMutex
	reservationLocks *keyedMutex
}

type Deps struct {
	Reservations reservation.Repository
	Resources    resource.Repository
	Quoter       pricing.Quoter
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reservations:     deps.Reservations,
		resources:        deps.Resources,
		quoter:           deps.Quoter,
		box:              deps.Outbox,
		encoder:          deps.Encoder,
		logger:           logger,
		now:              now,
		resourceLocks:    newKeyedMutex(),
		reservationLocks: newKeyedMutex(),
	}
}

type CreateParams struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	GuestID    string
	GuestName  string
	GuestPhone string
	Occupants  int
}

// Create admits a new reservation. The overlap check, insert and occupancy
// update run under the per-resource lock so two overlapping requests for the
// same resource cannot both succeed.
func (s *Service) Create(ctx context.Context, params CreateParams) (*reservation.Reservation, error) {
	dr, err := daterange.New(params.Start, params.End)
	if err != nil {
		return nil, err
	}

	unlock := s.resourceLocks.Lock(params.ResourceID)
	defer unlock()

	res, err := s.resources.ByID(ctx, params.ResourceID)
	if err != nil {
		return nil, err
	}
	if !res.AcceptsOccupants(params.Occupants) {
		return nil, fmt.Errorf("%w: %d over capacity %d", reservation.ErrCapacityExceeded, params.Occupants, res.Capacity)
	}

	if conflict := s.findConflicts(ctx, params.ResourceID, dr); conflict != nil {
		return nil, conflict
	}

	quote, err := s.quote(res, dr, params.Occupants)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rsv, err := reservation.New(reservation.CreateParams{
		ID:           uuid.NewString(),
		Reference:    newReference(),
		GuestID:      params.GuestID,
		GuestName:    params.GuestName,
		GuestPhone:   params.GuestPhone,
		ResourceID:   res.ID,
		ResourceKind: res.Kind,
		Range:        dr,
		Occupants:    params.Occupants,
		Price:        quote,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if err := rsv.Confirm(now); err != nil {
		return nil, err
	}

	if err := s.reservations.Save(ctx, rsv); err != nil {
		return nil, err
	}

	// Point-in-time occupancy only moves when the stay has already begun;
	// future reservations are tracked by the interval index alone.
	if dr.ContainsTime(now) {
		res.Occupy(rsv.ID, now)
		if err := s.resources.Save(ctx, res); err != nil {
			s.logger.Warn("occupancy pointer update failed", "resource_id", res.ID, "reservation_id", rsv.ID, "error", err)
		}
	}

	if err := s.drainEvents(ctx, rsv); err != nil {
		return nil, err
	}
	return rsv, nil
}

func (s *Service) Get(ctx context.Context, id string, actor Actor) (*reservation.Reservation, error) {
	rsv, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && rsv.GuestID != actor.GuestID {
		return nil, reservation.ErrNotOwner
	}
	return rsv, nil
}

// Page is one listing page together with the pagination actually applied.
type Page struct {
	Items   []*reservation.Reservation `json:"reservations"`
	Page    int                        `json:"page"`
	PerPage int                        `json:"per_page"`
}

func (s *Service) List(ctx context.Context, filter reservation.Filter, actor Actor) (Page, error) {
	if !actor.IsStaff() {
		if actor.GuestID == "" {
			return Page{}, reservation.ErrGuestRequired
		}
		filter.GuestID = actor.GuestID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}
	items, err := s.reservations.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: filter.Page, PerPage: filter.PerPage}, nil
}

// Transition applies a guarded lifecycle action. Cancel routed through here
// carries no reason, fee or refund; the dedicated Cancel call records those.
func (s *Service) Transition(ctx context.Context, id string, action reservation.Action, actor Actor) (*reservation.Reservation, error) {
	if action == reservation.ActionCancel {
		return s.Cancel(ctx, id, CancelParams{}, actor)
	}

	unlock := s.reservationLocks.Lock(id)
	defer unlock()

	rsv, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := applyAction(rsv, action, actor, now); err != nil {
		return nil, err
	}

	if err := s.reservations.Save(ctx, rsv); err != nil {
		// A cross-process writer may have bumped the version between load and
		// save; re-load and re-apply once before giving up.
		s.logger.Warn("transition save failed, retrying once", "reservation_id", id, "error", err)
		if rsv, err = s.reservations.ByID(ctx, id); err != nil {
			return nil, err
		}
		if err := applyAction(rsv, action, actor, now); err != nil {
			return nil, err
		}
		if err := s.reservations.Save(ctx, rsv); err != nil {
			return nil, err
		}
	}

	switch action {
	case reservation.ActionCheckIn:
		s.occupyResource(ctx, rsv.ResourceID, rsv.ID, now)
	case reservation.ActionCheckOut, reservation.ActionNoShow, reservation.ActionComplete:
		s.releaseResource(ctx, rsv.ResourceID, rsv.ID, now)
	}

	if err := s.drainEvents(ctx, rsv); err != nil {
		return nil, err
	}
	return rsv, nil
}

type CancelParams struct {
	Reason      string
	RefundCents int64
	FeeCents    int64
}

func (s *Service) Cancel(ctx context.Context, id string, params CancelParams, actor Actor) (*reservation.Reservation, error) {
	if params.RefundCents < 0 || params.FeeCents < 0 {
		return nil, reservation.ErrAmountNotPositive
	}

	unlock := s.reservationLocks.Lock(id)
	defer unlock()

	rsv, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && rsv.GuestID != actor.GuestID {
		return nil, reservation.ErrNotOwner
	}
	now := s.now()
	currency := rsv.Price.Total.Currency
	refund := money.Money{Amount: params.RefundCents, Currency: currency}
	fee := money.Money{Amount: params.FeeCents, Currency: currency}

	if err := rsv.Cancel(params.Reason, refund, fee, actor.ident(), now); err != nil {
		return nil, err
	}
	if err := s.reservations.Save(ctx, rsv); err != nil {
		return nil, err
	}
	s.releaseResource(ctx, rsv.ResourceID, rsv.ID, now)

	if err := s.drainEvents(ctx, rsv); err != nil {
		return nil, err
	}
	return rsv, nil
}

type PaymentInput struct {
	AmountCents   int64
	Method        string
	TransactionID string
	Status        string
}

// AddPayment appends a ledger entry and reconciles the aggregate payment
// status. Guests may only pay their own reservation; their entries take the
// per-method default status regardless of what was submitted.
func (s *Service) AddPayment(ctx context.Context, id string, input PaymentInput, actor Actor) (*reservation.Reservation, error) {
	method, ok := reservation.ParsePaymentMethod(input.Method)
	if !ok {
		return nil, fmt.Errorf("%w: %q", reservation.ErrUnknownMethod, input.Method)
	}
	if input.AmountCents <= 0 {
		return nil, reservation.ErrAmountNotPositive
	}

	unlock := s.reservationLocks.Lock(id)
	defer unlock()

	rsv, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := reservation.PaymentEntry{
		ID:            uuid.NewString(),
		Amount:        money.Money{Amount: input.AmountCents, Currency: rsv.Price.Total.Currency},
		Method:        method,
		TransactionID: input.TransactionID,
		At:            now,
	}

	if actor.IsStaff() {
		entry.RecordedBy = actor.ident()
		if input.Status != "" {
			status, ok := reservation.ParseEntryStatus(input.Status)
			if !ok {
				return nil, fmt.Errorf("%w: %q", reservation.ErrUnknownEntryState, input.Status)
			}
			entry.Status = status
		}
	} else {
		if rsv.GuestID != actor.GuestID {
			return nil, reservation.ErrNotOwner
		}
		entry.RecordedBy = reservation.GuestSelfService
		entry.Status = method.DefaultEntryStatus()
	}

	if err := rsv.AddPayment(entry); err != nil {
		return nil, err
	}
	if err := s.reservations.Save(ctx, rsv); err != nil {
		return nil, err
	}
	if err := s.drainEvents(ctx, rsv); err != nil {
		return nil, err
	}
	return rsv, nil
}

// ReleaseElapsed is one pass of the auto-release sweep: every confirmed or
// checked-in reservation whose window has closed is completed and its resource
// freed. Each item is independent; a failure is logged and retried on the
// next pass.
func (s *Service) ReleaseElapsed(ctx context.Context, now time.Time) int {
	due, err := s.reservations.DueForRelease(ctx, now)
	if err != nil {
		s.logger.Error("sweep: listing due reservations failed", "error", err)
		return 0
	}

	reclaimed := 0
	for _, stale := range due {
		if s.releaseOne(ctx, stale.ID, now) {
			reclaimed++
		}
	}
	return reclaimed
}

func (s *Service) releaseOne(ctx context.Context, id string, now time.Time) bool {
	unlock := s.reservationLocks.Lock(id)
	defer unlock()

	// Re-load under the lock: a concurrent check-out or cancel may have won.
	rsv, err := s.reservations.ByID(ctx, id)
	if err != nil {
		s.logger.Warn("sweep: reservation reload failed", "reservation_id", id, "error", err)
		return false
	}
	if !rsv.Status.BlocksAvailability() || rsv.Range.End.After(now) {
		return false
	}
	if err := rsv.Complete(now); err != nil {
		s.logger.Warn("sweep: complete rejected", "reservation_id", id, "status", rsv.Status, "error", err)
		return false
	}
	if err := s.reservations.Save(ctx, rsv); err != nil {
		s.logger.Warn("sweep: save failed", "reservation_id", id, "error", err)
		return false
	}
	s.releaseResource(ctx, rsv.ResourceID, rsv.ID, now)
	if err := s.drainEvents(ctx, rsv); err != nil {
		s.logger.Warn("sweep: event record failed", "reservation_id", id, "error", err)
	}
	return true
}

func applyAction(rsv *reservation.Reservation, action reservation.Action, actor Actor, now time.Time) error {
	switch action {
	case reservation.ActionConfirm:
		return rsv.Confirm(now)
	case reservation.ActionCheckIn:
		return rsv.CheckIn(actor.ident(), now)
	case reservation.ActionCheckOut:
		return rsv.CheckOut(actor.ident(), now)
	case reservation.ActionNoShow:
		return rsv.MarkNoShow(actor.ident(), now)
	case reservation.ActionComplete:
		return rsv.Complete(now)
	default:
		return fmt.Errorf("%w: unknown action %q", reservation.ErrInvalidTransition, action)
	}
}

func (s *Service) quote(res *resource.Resource, dr daterange.Range, occupants int) (pricing.Breakdown, error) {
	switch res.Kind {
	case resource.KindPool:
		return s.quoter.QuotePool(res.RateCents, occupants, res.ActivityName != "")
	default:
		return s.quoter.QuoteRoom(res.RateCents, dr.Nights())
	}
}

func (s *Service) findConflicts(ctx context.Context, resourceID string, dr daterange.Range) *reservation.ConflictError {
	active, err := s.reservations.ActiveByResource(ctx, resourceID)
	if err != nil {
		s.logger.Error("active reservation lookup failed", "resource_id", resourceID, "error", err)
		// Fail closed: without the index we cannot prove the range is free.
		return &reservation.ConflictError{ResourceID: resourceID}
	}
	var conflicts []reservation.ConflictingRange
	for _, other := range active {
		if other.Range.Overlaps(dr) {
			conflicts = append(conflicts, reservation.ConflictingRange{
				ReservationID: other.ID,
				Reference:     other.Reference,
				Range:         other.Range,
			})
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return &reservation.ConflictError{ResourceID: resourceID, Conflicts: conflicts}
}

func (s *Service) occupyResource(ctx context.Context, resourceID, reservationID string, now time.Time) {
	res, err := s.resources.ByID(ctx, resourceID)
	if err != nil {
		s.logger.Warn("occupy: resource load failed", "resource_id", resourceID, "error", err)
		return
	}
	res.Occupy(reservationID, now)
	if err := s.resources.Save(ctx, res); err != nil {
		s.logger.Warn("occupy: resource save failed", "resource_id", resourceID, "error", err)
	}
}

func (s *Service) releaseResource(ctx context.Context, resourceID, reservationID string, now time.Time) {
	res, err := s.resources.ByID(ctx, resourceID)
	if err != nil {
		s.logger.Warn("release: resource load failed", "resource_id", resourceID, "error", err)
		return
	}
	if !res.Release(reservationID, now) {
		return
	}
	if err := s.resources.Save(ctx, res); err != nil {
		s.logger.Warn("release: resource save failed", "resource_id", resourceID, "error", err)
	}
}

func (s *Service) drainEvents(ctx context.Context, rsv *reservation.Reservation) error {
	pending := rsv.PendingEvents()
	rsv.ClearEvents()
	return outbox.RecordDomainEvents(ctx, s.box, s.encoder, pending)
}

func newReference() string {
	return "RSV-" + strings.ToUpper(uuid.NewString()[:8])
}
