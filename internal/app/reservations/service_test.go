package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotelier/internal/domain/pricing"
	"hotelier/internal/domain/reservation"
	"hotelier/internal/domain/resource"
	"hotelier/internal/infra/storage/memory"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	service      *Service
	reservations *memory.ReservationRepository
	resources    *memory.ResourceRepository
	outbox       *memory.Outbox
	clock        *clock
}

var (
	guest = Actor{GuestID: "guest-1"}
	staff = Actor{StaffID: "staff-1", Role: "staff"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	reservationsRepo := memory.NewReservationRepository()
	resourcesRepo := memory.NewResourceRepository()
	box := memory.NewOutbox()

	service := NewService(Deps{
		Reservations: reservationsRepo,
		Resources:    resourcesRepo,
		Quoter:       pricing.Quoter{TaxRateBps: 1600, ServiceRateBps: 1000, Currency: "KES"},
		Outbox:       box,
		Now:          clk.Now,
	})

	seed := []resource.CreateParams{
		{ID: "room-101", Name: "Room 101", Kind: resource.KindRoom, Capacity: 2, RateCents: 5000},
		{ID: "pool-aqua", Name: "Aqua Pool", Kind: resource.KindPool, Capacity: 15, RateCents: 2000, ActivityName: "Aqua Aerobics"},
	}
	for _, params := range seed {
		params.Now = clk.now
		res, err := resource.New(params)
		if err != nil {
			t.Fatalf("seed resource %s: %v", params.ID, err)
		}
		if err := resourcesRepo.Save(context.Background(), res); err != nil {
			t.Fatalf("save resource %s: %v", params.ID, err)
		}
	}

	return &fixture{
		service:      service,
		reservations: reservationsRepo,
		resources:    resourcesRepo,
		outbox:       box,
		clock:        clk,
	}
}

func (f *fixture) day(d int) time.Time {
	return time.Date(2026, time.March, d, 14, 0, 0, 0, time.UTC)
}

func (f *fixture) book(t *testing.T, resourceID string, start, end time.Time) *reservation.Reservation {
	t.Helper()
	rsv, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: resourceID,
		Start:      start,
		End:        end,
		GuestID:    guest.GuestID,
		Occupants:  2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rsv
}

func TestCreateConfirmsAndPrices(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(10), f.day(12))

	if rsv.Status != reservation.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", rsv.Status)
	}
	if rsv.PaymentStatus != reservation.PaymentPending {
		t.Fatalf("payment status = %s, want pending", rsv.PaymentStatus)
	}
	if rsv.Price.Total.Amount != 12600 {
		t.Fatalf("total = %d, want 12600", rsv.Price.Total.Amount)
	}
	if rsv.Reference == "" {
		t.Fatal("reference not assigned")
	}

	// A future stay must not move the occupancy pointer.
	res, err := f.resources.ByID(context.Background(), "room-101")
	if err != nil {
		t.Fatalf("resource reload: %v", err)
	}
	if res.CurrentBookingID != "" {
		t.Fatalf("occupancy pointer set for a future stay: %s", res.CurrentBookingID)
	}

	pending, err := f.outbox.Pending(context.Background(), 10)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("outbox records = %d, want 2 (created + confirmed)", len(pending))
	}
}

func TestCreateOccupiesWhenStayHasBegun(t *testing.T) {
	f := newFixture(t)
	start := f.clock.now.Add(-time.Hour)
	rsv := f.book(t, "room-101", start, start.Add(48*time.Hour))

	res, _ := f.resources.ByID(context.Background(), "room-101")
	if res.CurrentBookingID != rsv.ID {
		t.Fatalf("pointer = %q, want %q", res.CurrentBookingID, rsv.ID)
	}
	if res.Status != resource.StatusOccupied {
		t.Fatalf("status = %s, want occupied", res.Status)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	existing := f.book(t, "room-101", f.day(1), f.day(5))

	_, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: "room-101",
		Start:      f.day(2),
		End:        f.day(4),
		GuestID:    "guest-2",
		Occupants:  1,
	})
	var conflict *reservation.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ReservationID != existing.ID {
		t.Fatalf("conflicts = %+v", conflict.Conflicts)
	}
}

func TestCreateAllowsAdjacentRanges(t *testing.T) {
	f := newFixture(t)
	f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: "room-101",
		Start:      f.day(3),
		End:        f.day(5),
		GuestID:    "guest-2",
		Occupants:  1,
	}); err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
}

func TestCancelledReservationFreesTheRange(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(5))

	if _, err := f.service.Cancel(context.Background(), rsv.ID, CancelParams{Reason: "plans changed"}, staff); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: "room-101",
		Start:      f.day(2),
		End:        f.day(4),
		GuestID:    "guest-2",
		Occupants:  1,
	}); err != nil {
		t.Fatalf("range still blocked after cancel: %v", err)
	}
}

func TestCreateRejectsOverCapacity(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: "room-101",
		Start:      f.day(1),
		End:        f.day(3),
		GuestID:    guest.GuestID,
		Occupants:  3,
	})
	if !errors.Is(err, reservation.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestPoolBookingQuotesPerParticipant(t *testing.T) {
	f := newFixture(t)
	rsv, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: "pool-aqua",
		Start:      f.day(1),
		End:        f.day(1).Add(2 * time.Hour),
		GuestID:    guest.GuestID,
		Occupants:  3,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rsv.Price.Total.Amount != 6000 {
		t.Fatalf("pool total = %d, want 6000", rsv.Price.Total.Amount)
	}
	if rsv.Price.Taxes.Amount != 0 {
		t.Fatalf("pool taxes = %d, want 0", rsv.Price.Taxes.Amount)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.Get(context.Background(), rsv.ID, Actor{GuestID: "guest-2"}); !errors.Is(err, reservation.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if _, err := f.service.Get(context.Background(), rsv.ID, staff); err != nil {
		t.Fatalf("staff read rejected: %v", err)
	}
	if _, err := f.service.Get(context.Background(), rsv.ID, guest); err != nil {
		t.Fatalf("owner read rejected: %v", err)
	}
}

func TestListScopesGuestsToOwnReservations(t *testing.T) {
	f := newFixture(t)
	f.book(t, "room-101", f.day(1), f.day(3))

	other, err := f.service.Create(context.Background(), CreateParams{
		ResourceID: "room-101",
		Start:      f.day(3),
		End:        f.day(5),
		GuestID:    "guest-2",
		Occupants:  1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, err := f.service.List(context.Background(), reservation.Filter{}, guest)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, rsv := range mine.Items {
		if rsv.ID == other.ID {
			t.Fatal("guest list leaked another guest's reservation")
		}
	}

	all, err := f.service.List(context.Background(), reservation.Filter{}, staff)
	if err != nil {
		t.Fatalf("staff List: %v", err)
	}
	if len(all.Items) != 2 {
		t.Fatalf("staff list = %d items, want 2", len(all.Items))
	}
}

func TestListClampsPagination(t *testing.T) {
	f := newFixture(t)
	f.book(t, "room-101", f.day(1), f.day(3))

	page, err := f.service.List(context.Background(), reservation.Filter{Page: -3, PerPage: 500}, staff)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Page != 1 || page.PerPage != 20 {
		t.Fatalf("pagination = %d/%d, want 1/20", page.Page, page.PerPage)
	}
}

func TestCheckInAndCheckOutMoveOccupancy(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.Transition(context.Background(), rsv.ID, reservation.ActionCheckIn, staff); err != nil {
		t.Fatalf("check_in: %v", err)
	}
	res, _ := f.resources.ByID(context.Background(), "room-101")
	if res.Status != resource.StatusOccupied || res.CurrentBookingID != rsv.ID {
		t.Fatalf("after check-in: status=%s pointer=%q", res.Status, res.CurrentBookingID)
	}

	out, err := f.service.Transition(context.Background(), rsv.ID, reservation.ActionCheckOut, staff)
	if err != nil {
		t.Fatalf("check_out: %v", err)
	}
	if out.Status != reservation.StatusCheckedOut {
		t.Fatalf("status = %s, want checked_out", out.Status)
	}
	res, _ = f.resources.ByID(context.Background(), "room-101")
	if res.Status != resource.StatusAvailable || res.CurrentBookingID != "" {
		t.Fatalf("after check-out: status=%s pointer=%q", res.Status, res.CurrentBookingID)
	}
	if res.Ready {
		t.Fatal("room should need housekeeping after check-out")
	}
}

func TestTransitionRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.Transition(context.Background(), rsv.ID, reservation.ActionCheckOut, staff); !errors.Is(err, reservation.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestStaffCancelRecordsTerms(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.AddPayment(context.Background(), rsv.ID, PaymentInput{
		AmountCents: 12600,
		Method:      "card",
	}, guest); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	cancelled, err := f.service.Cancel(context.Background(), rsv.ID, CancelParams{
		Reason:      "overbooked",
		RefundCents: 10000,
		FeeCents:    2600,
	}, staff)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.CancelReason != "overbooked" || cancelled.Refund.Amount != 10000 || cancelled.CancelFee.Amount != 2600 {
		t.Fatalf("cancel terms = %q/%d/%d", cancelled.CancelReason, cancelled.Refund.Amount, cancelled.CancelFee.Amount)
	}
	last := cancelled.Payments[len(cancelled.Payments)-1]
	if last.Status != reservation.EntryRefunded {
		t.Fatalf("last entry = %+v, want refunded", last)
	}
}

func TestGuestCancelRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.Cancel(context.Background(), rsv.ID, CancelParams{}, Actor{GuestID: "guest-2"}); !errors.Is(err, reservation.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestGuestPaymentTakesMethodDefaults(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	// A guest submitting a completed status for cash is ignored: cash stays
	// pending until countersigned.
	updated, err := f.service.AddPayment(context.Background(), rsv.ID, PaymentInput{
		AmountCents: 12600,
		Method:      "cash",
		Status:      "completed",
	}, guest)
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	entry := updated.Payments[0]
	if entry.Status != reservation.EntryPending {
		t.Fatalf("cash entry status = %s, want pending", entry.Status)
	}
	if entry.RecordedBy != reservation.GuestSelfService {
		t.Fatalf("recorded by = %q", entry.RecordedBy)
	}
	if updated.PaymentStatus != reservation.PaymentPending {
		t.Fatalf("payment status = %s, want pending", updated.PaymentStatus)
	}
}

func TestStaffPaymentMaySetExplicitStatus(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	updated, err := f.service.AddPayment(context.Background(), rsv.ID, PaymentInput{
		AmountCents: 12600,
		Method:      "cash",
		Status:      "completed",
	}, staff)
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if updated.Payments[0].Status != reservation.EntryCompleted {
		t.Fatalf("entry status = %s, want completed", updated.Payments[0].Status)
	}
	if updated.PaymentStatus != reservation.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", updated.PaymentStatus)
	}
}

func TestPaymentRejectsUnknownMethod(t *testing.T) {
	f := newFixture(t)
	rsv := f.book(t, "room-101", f.day(1), f.day(3))

	if _, err := f.service.AddPayment(context.Background(), rsv.ID, PaymentInput{
		AmountCents: 100,
		Method:      "barter",
	}, staff); !errors.Is(err, reservation.ErrUnknownMethod) {
		t.Fatalf("err = %v, want ErrUnknownMethod", err)
	}
}

func TestReleaseElapsedCompletesAndFrees(t *testing.T) {
	f := newFixture(t)
	start := f.clock.now.Add(-time.Hour)
	rsv := f.book(t, "room-101", start, start.Add(2*time.Hour))

	res, _ := f.resources.ByID(context.Background(), "room-101")
	if res.CurrentBookingID != rsv.ID {
		t.Fatalf("precondition: pointer = %q", res.CurrentBookingID)
	}

	f.clock.Advance(3 * time.Hour)
	if got := f.service.ReleaseElapsed(context.Background(), f.clock.now); got != 1 {
		t.Fatalf("reclaimed = %d, want 1", got)
	}

	reloaded, err := f.reservations.ByID(context.Background(), rsv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != reservation.StatusCompleted {
		t.Fatalf("status = %s, want completed", reloaded.Status)
	}
	res, _ = f.resources.ByID(context.Background(), "room-101")
	if res.CurrentBookingID != "" || res.Status != resource.StatusAvailable {
		t.Fatalf("resource not freed: status=%s pointer=%q", res.Status, res.CurrentBookingID)
	}
	if res.LastBookingID != rsv.ID {
		t.Fatalf("last booking = %q, want %q", res.LastBookingID, rsv.ID)
	}

	// A second pass over the same data reclaims nothing.
	if got := f.service.ReleaseElapsed(context.Background(), f.clock.now); got != 0 {
		t.Fatalf("second pass reclaimed = %d, want 0", got)
	}
}

// flakyReservationRepo fails Save for one chosen reservation.
type flakyReservationRepo struct {
	*memory.ReservationRepository
	failID string
}

func (r *flakyReservationRepo) Save(ctx context.Context, rsv *reservation.Reservation) error {
	if r.failID != "" && rsv.ID == r.failID {
		return errors.New("storage offline")
	}
	return r.ReservationRepository.Save(ctx, rsv)
}

func TestReleaseElapsedIsolatesFailures(t *testing.T) {
	clk := &clock{now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	flaky := &flakyReservationRepo{ReservationRepository: memory.NewReservationRepository()}
	resourcesRepo := memory.NewResourceRepository()

	service := NewService(Deps{
		Reservations: flaky,
		Resources:    resourcesRepo,
		Quoter:       pricing.Quoter{TaxRateBps: 1600, ServiceRateBps: 1000, Currency: "KES"},
		Outbox:       memory.NewOutbox(),
		Now:          clk.Now,
	})
	for _, id := range []string{"room-101", "room-102"} {
		res, err := resource.New(resource.CreateParams{
			ID: id, Name: id, Kind: resource.KindRoom, Capacity: 2, RateCents: 5000, Now: clk.now,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
		if err := resourcesRepo.Save(context.Background(), res); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	start := clk.now.Add(-time.Hour)
	book := func(resourceID string) *reservation.Reservation {
		rsv, err := service.Create(context.Background(), CreateParams{
			ResourceID: resourceID,
			Start:      start,
			End:        start.Add(2 * time.Hour),
			GuestID:    guest.GuestID,
			Occupants:  1,
		})
		if err != nil {
			t.Fatalf("Create %s: %v", resourceID, err)
		}
		return rsv
	}
	healthy := book("room-101")
	stuck := book("room-102")

	// One reservation cannot be saved; the other must still be reclaimed.
	flaky.failID = stuck.ID
	clk.Advance(3 * time.Hour)
	if got := service.ReleaseElapsed(context.Background(), clk.now); got != 1 {
		t.Fatalf("reclaimed = %d, want 1", got)
	}

	reloaded, err := flaky.ByID(context.Background(), healthy.ID)
	if err != nil {
		t.Fatalf("reload healthy: %v", err)
	}
	if reloaded.Status != reservation.StatusCompleted {
		t.Fatalf("healthy status = %s, want completed", reloaded.Status)
	}
	reloaded, err = flaky.ByID(context.Background(), stuck.ID)
	if err != nil {
		t.Fatalf("reload stuck: %v", err)
	}
	if reloaded.Status != reservation.StatusConfirmed {
		t.Fatalf("stuck status = %s, want confirmed until the next pass", reloaded.Status)
	}

	// Storage recovers; the skipped reservation drains on the next pass.
	flaky.failID = ""
	if got := service.ReleaseElapsed(context.Background(), clk.now); got != 1 {
		t.Fatalf("second pass reclaimed = %d, want 1", got)
	}
	reloaded, err = flaky.ByID(context.Background(), stuck.ID)
	if err != nil {
		t.Fatalf("reload after recovery: %v", err)
	}
	if reloaded.Status != reservation.StatusCompleted {
		t.Fatalf("status after recovery = %s, want completed", reloaded.Status)
	}
	res, err := resourcesRepo.ByID(context.Background(), "room-102")
	if err != nil {
		t.Fatalf("reload room-102: %v", err)
	}
	if res.CurrentBookingID != "" || res.Status != resource.StatusAvailable {
		t.Fatalf("resource not freed: status=%s pointer=%q", res.Status, res.CurrentBookingID)
	}
}

func TestReleaseElapsedSkipsOpenWindows(t *testing.T) {
	f := newFixture(t)
	start := f.clock.now.Add(-time.Hour)
	f.book(t, "room-101", start, start.Add(48*time.Hour))

	if got := f.service.ReleaseElapsed(context.Background(), f.clock.now); got != 0 {
		t.Fatalf("reclaimed = %d, want 0 for an open window", got)
	}
}

func TestAvailabilityReportsBlockedRanges(t *testing.T) {
	f := newFixture(t)
	f.book(t, "room-101", f.day(10), f.day(14))

	summary, err := f.service.Availability(context.Background(), f.day(12), f.day(16))
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}

	byID := map[string]ResourceAvailability{}
	for _, entry := range summary {
		byID[entry.Resource.ID] = entry
	}
	room := byID["room-101"]
	if room.Available {
		t.Fatal("room should be unavailable in an overlapping window")
	}
	if len(room.BlockedRanges) != 1 {
		t.Fatalf("blocked ranges = %d, want 1", len(room.BlockedRanges))
	}
	blocked := room.BlockedRanges[0].Range
	if !blocked.Start.Equal(f.day(12)) || !blocked.End.Equal(f.day(14)) {
		t.Fatalf("blocked range not clamped to window: %v..%v", blocked.Start, blocked.End)
	}
	if pool := byID["pool-aqua"]; !pool.Available {
		t.Fatal("pool with no bookings should be available")
	}
}

func TestAvailabilityHonorsOutOfService(t *testing.T) {
	f := newFixture(t)
	res, _ := f.resources.ByID(context.Background(), "room-101")
	if err := res.SetStatus(resource.StatusMaintenance, f.clock.now); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := f.resources.Save(context.Background(), res); err != nil {
		t.Fatalf("Save: %v", err)
	}

	summary, err := f.service.Availability(context.Background(), f.day(10), f.day(12))
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	for _, entry := range summary {
		if entry.Resource.ID == "room-101" && entry.Available {
			t.Fatal("resource under maintenance reported available")
		}
	}
}
