package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/db"
	"github.com/slotwise/booking-backend/internal/slot"
)

// fakeStore is an in-memory stand-in for the database shared by the fake
// repositories. fakeTxRunner snapshots it before each transaction and
// restores the snapshot on error, mimicking rollback.
type fakeStore struct {
	slots    map[string]*slot.Slot
	bookings map[string]*Booking
	history  []*History
	seq      int64
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:    map[string]*slot.Slot{},
		bookings: map[string]*Booking{},
	}
}

func (st *fakeStore) id(prefix string) string {
	st.nextID++
	return fmt.Sprintf("%s-%04d", prefix, st.nextID)
}

func (st *fakeStore) snapshot() *fakeStore {
	snap := &fakeStore{
		slots:    make(map[string]*slot.Slot, len(st.slots)),
		bookings: make(map[string]*Booking, len(st.bookings)),
		history:  make([]*History, len(st.history)),
		seq:      st.seq,
		nextID:   st.nextID,
	}
	for id, s := range st.slots {
		c := *s
		snap.slots[id] = &c
	}
	for id, b := range st.bookings {
		c := *b
		snap.bookings[id] = &c
	}
	for i, h := range st.history {
		c := *h
		snap.history[i] = &c
	}
	return snap
}

func (st *fakeStore) restore(snap *fakeStore) {
	st.slots = snap.slots
	st.bookings = snap.bookings
	st.history = snap.history
	st.seq = snap.seq
	st.nextID = snap.nextID
}

// fakeTxRunner serializes transactions with a mutex, standing in for the row
// locks that serialize them against the real database.
type fakeTxRunner struct {
	mu    sync.Mutex
	store *fakeStore
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(q db.Querier) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// fakeSlotRepo mirrors the ledger semantics of the real repository.
type fakeSlotRepo struct {
	store *fakeStore
	now   func() time.Time
}

func (r *fakeSlotRepo) find(id, tenantID string) *slot.Slot {
	s, ok := r.store.slots[id]
	if !ok || s.TenantID != tenantID {
		return nil
	}
	return s
}

func (r *fakeSlotRepo) Create(ctx context.Context, s *slot.Slot) error {
	s.ID = r.store.id("slot")
	r.store.slots[s.ID] = s
	return nil
}

func (r *fakeSlotRepo) CreateBatch(ctx context.Context, q db.Querier, slots []*slot.Slot) error {
	for _, s := range slots {
		if err := r.Create(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, id, tenantID string) (*slot.Slot, error) {
	s := r.find(id, tenantID)
	if s == nil {
		return nil, slot.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *fakeSlotRepo) ListAvailable(ctx context.Context, serviceID, tenantID string, from, to time.Time) ([]*slot.Slot, error) {
	var out []*slot.Slot
	for _, s := range r.store.slots {
		if s.ServiceID == serviceID && s.TenantID == tenantID && s.Bookable(r.now()) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) HasOverlap(ctx context.Context, serviceID, tenantID string, start, end time.Time, excludeSlotID string) (bool, error) {
	for _, s := range r.store.slots {
		if s.ID == excludeSlotID || s.ServiceID != serviceID || s.TenantID != tenantID {
			continue
		}
		if s.StartTime.Before(end) && s.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSlotRepo) Delete(ctx context.Context, id, tenantID string) error {
	if r.find(id, tenantID) == nil {
		return slot.ErrNotFound
	}
	delete(r.store.slots, id)
	return nil
}

func (r *fakeSlotRepo) CountBookings(ctx context.Context, slotID string) (int, error) {
	n := 0
	for _, b := range r.store.bookings {
		if b.SlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (r *fakeSlotRepo) Reserve(ctx context.Context, q db.Querier, id, tenantID string) (*slot.Slot, error) {
	s := r.find(id, tenantID)
	if s == nil {
		return nil, slot.ErrNotFound
	}
	if !s.Bookable(r.now()) {
		return nil, slot.ErrNotAvailable
	}
	s.AvailableBookings--
	s.IsAvailable = s.AvailableBookings > 0
	c := *s
	return &c, nil
}

func (r *fakeSlotRepo) Release(ctx context.Context, q db.Querier, id, tenantID string) (*slot.Slot, error) {
	s := r.find(id, tenantID)
	if s == nil {
		return nil, slot.ErrNotFound
	}
	if s.AvailableBookings < s.MaxBookings {
		s.AvailableBookings++
	}
	s.IsAvailable = s.StartTime.After(r.now())
	c := *s
	return &c, nil
}

func (r *fakeSlotRepo) LockForUpdate(ctx context.Context, q db.Querier, ids []string, tenantID string) (map[string]*slot.Slot, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]*slot.Slot, len(sorted))
	for _, id := range sorted {
		if s := r.find(id, tenantID); s != nil {
			c := *s
			out[s.ID] = &c
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) AdjustCapacity(ctx context.Context, q db.Querier, id, tenantID string, delta int) (*slot.Slot, error) {
	s := r.find(id, tenantID)
	if s == nil {
		return nil, slot.ErrNotFound
	}
	next := s.AvailableBookings + delta
	if next < 0 || next > s.MaxBookings {
		return nil, slot.ErrCapacityBounds
	}
	s.AvailableBookings = next
	s.IsAvailable = next > 0 && s.StartTime.After(r.now())
	c := *s
	return &c, nil
}

func (r *fakeSlotRepo) Resize(ctx context.Context, q db.Querier, s *slot.Slot) error {
	existing := r.find(s.ID, s.TenantID)
	if existing == nil {
		return slot.ErrNotFound
	}
	*existing = *s
	return nil
}

// fakeBookingRepo mirrors the booking table, including the partial unique
// index on active (customer, slot) pairs.
type fakeBookingRepo struct {
	store *fakeStore
}

func (r *fakeBookingRepo) find(id, tenantID string) *Booking {
	b, ok := r.store.bookings[id]
	if !ok || b.TenantID != tenantID {
		return nil
	}
	return b
}

func (r *fakeBookingRepo) Create(ctx context.Context, q db.Querier, b *Booking) error {
	for _, existing := range r.store.bookings {
		if existing.CustomerID == b.CustomerID && existing.SlotID == b.SlotID &&
			(existing.Status == StatusPending || existing.Status == StatusConfirmed) {
			return ErrDuplicateBooking
		}
	}
	b.ID = r.store.id("bk")
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	c := *b
	r.store.bookings[b.ID] = &c
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id, tenantID string) (*Booking, error) {
	b := r.find(id, tenantID)
	if b == nil {
		return nil, ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *fakeBookingRepo) GetForUpdate(ctx context.Context, q db.Querier, id, tenantID string) (*Booking, error) {
	return r.GetByID(ctx, id, tenantID)
}

func (r *fakeBookingRepo) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	var out []*Booking
	for _, b := range r.store.bookings {
		if b.TenantID != filter.TenantID {
			continue
		}
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		c := *b
		out = append(out, &c)
	}
	return out, len(out), nil
}

func (r *fakeBookingRepo) UpdateStatus(ctx context.Context, q db.Querier, id, tenantID string, status Status, reason, changedBy string) error {
	b := r.find(id, tenantID)
	if b == nil {
		return ErrNotFound
	}
	b.Status = status
	if status == StatusCancelled {
		b.CancellationReason = reason
		at := time.Now()
		by := changedBy
		b.CancelledAt = &at
		b.CancelledBy = &by
	}
	return nil
}

func (r *fakeBookingRepo) SetSlot(ctx context.Context, q db.Querier, id, tenantID, slotID string) error {
	b := r.find(id, tenantID)
	if b == nil {
		return ErrNotFound
	}
	b.SlotID = slotID
	return nil
}

func (r *fakeBookingRepo) SetNotes(ctx context.Context, q db.Querier, id, tenantID, notes string) error {
	b := r.find(id, tenantID)
	if b == nil {
		return ErrNotFound
	}
	b.Notes = notes
	return nil
}

func (r *fakeBookingRepo) InsertHistory(ctx context.Context, q db.Querier, h *History) error {
	r.store.seq++
	h.ID = r.store.id("hist")
	h.Seq = r.store.seq
	h.CreatedAt = time.Now()
	c := *h
	r.store.history = append(r.store.history, &c)
	return nil
}

func (r *fakeBookingRepo) ListHistory(ctx context.Context, bookingID, tenantID string) ([]*History, error) {
	var out []*History
	for _, h := range r.store.history {
		if h.BookingID == bookingID && h.TenantID == tenantID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	services map[string]*catalog.Service
}

func (f *fakeCatalog) Create(ctx context.Context, req catalog.CreateRequest) (*catalog.Service, error) {
	panic("not used")
}

func (f *fakeCatalog) GetByID(ctx context.Context, id, tenantID string) (*catalog.Service, error) {
	s, ok := f.services[id]
	if !ok || s.TenantID != tenantID {
		return nil, catalog.ErrNotFound
	}
	return s, nil
}

func (f *fakeCatalog) List(ctx context.Context, filter catalog.Filter) ([]*catalog.Service, int, error) {
	panic("not used")
}

func (f *fakeCatalog) Deactivate(ctx context.Context, id, tenantID string) error {
	panic("not used")
}

// recordingPublisher collects events for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads []any
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
}

func noopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// fixture wires a coordinator over the fakes with a frozen clock.
type fixture struct {
	store     *fakeStore
	svc       *service
	publisher *recordingPublisher
	now       time.Time
}

const (
	testTenant   = "tenant-a"
	testCustomer = "customer-1"
	testService  = "service-1"
)

func newFixture() *fixture {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	publisher := &recordingPublisher{}
	nowFn := func() time.Time { return now }

	slots := &fakeSlotRepo{store: store, now: nowFn}
	cat := &fakeCatalog{services: map[string]*catalog.Service{
		testService: {
			ID:       testService,
			TenantID: testTenant,
			Name:     "Deep Tissue Massage",
			Price:    decimal.NewFromInt(80),
			Currency: "USD",
			IsActive: true,
		},
	}}

	svc := &service{
		repo:      &fakeBookingRepo{store: store},
		slots:     slots,
		catalog:   cat,
		txRunner:  &fakeTxRunner{store: store},
		publisher: publisher,
		tracer:    noopTracer(),
		now:       nowFn,
	}

	return &fixture{store: store, svc: svc, publisher: publisher, now: now}
}

func (f *fixture) addSlot(id string, capacity int, startIn time.Duration) *slot.Slot {
	s := &slot.Slot{
		ID:                id,
		ServiceID:         testService,
		TenantID:          testTenant,
		StartTime:         f.now.Add(startIn),
		EndTime:           f.now.Add(startIn + time.Hour),
		MaxBookings:       capacity,
		AvailableBookings: capacity,
		IsAvailable:       true,
	}
	f.store.slots[id] = s
	return s
}

func (f *fixture) create(customer, slotID string) (*Booking, error) {
	return f.svc.Create(context.Background(), CreateBookingRequest{
		TenantID:   testTenant,
		CustomerID: customer,
		ServiceID:  testService,
		SlotID:     slotID,
	})
}
