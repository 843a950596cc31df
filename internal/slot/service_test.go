package slot

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/db"
	"github.com/slotwise/booking-backend/internal/events"
)

type memRepo struct {
	slots        map[string]*Slot
	bookingCount map[string]int
	nextID       int
	now          func() time.Time
}

func newMemRepo(now func() time.Time) *memRepo {
	return &memRepo{
		slots:        map[string]*Slot{},
		bookingCount: map[string]int{},
		now:          now,
	}
}

func (r *memRepo) Create(ctx context.Context, s *Slot) error {
	r.nextID++
	s.ID = fmt.Sprintf("slot-%04d", r.nextID)
	c := *s
	r.slots[s.ID] = &c
	return nil
}

func (r *memRepo) CreateBatch(ctx context.Context, q db.Querier, slots []*Slot) error {
	for _, s := range slots {
		if err := r.Create(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id, tenantID string) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *memRepo) ListAvailable(ctx context.Context, serviceID, tenantID string, from, to time.Time) ([]*Slot, error) {
	var out []*Slot
	for _, s := range r.slots {
		if s.ServiceID != serviceID || s.TenantID != tenantID || !s.Bookable(r.now()) {
			continue
		}
		if s.StartTime.Before(from) || s.EndTime.After(to) {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memRepo) HasOverlap(ctx context.Context, serviceID, tenantID string, start, end time.Time, excludeSlotID string) (bool, error) {
	for _, s := range r.slots {
		if s.ID == excludeSlotID || s.ServiceID != serviceID || s.TenantID != tenantID {
			continue
		}
		if s.StartTime.Before(end) && s.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Delete(ctx context.Context, id, tenantID string) error {
	if _, err := r.GetByID(ctx, id, tenantID); err != nil {
		return err
	}
	delete(r.slots, id)
	return nil
}

func (r *memRepo) CountBookings(ctx context.Context, slotID string) (int, error) {
	return r.bookingCount[slotID], nil
}

func (r *memRepo) Reserve(ctx context.Context, q db.Querier, id, tenantID string) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	if !s.Bookable(r.now()) {
		return nil, ErrNotAvailable
	}
	s.AvailableBookings--
	s.IsAvailable = s.AvailableBookings > 0
	c := *s
	return &c, nil
}

func (r *memRepo) Release(ctx context.Context, q db.Querier, id, tenantID string) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	if s.AvailableBookings < s.MaxBookings {
		s.AvailableBookings++
	}
	s.IsAvailable = s.StartTime.After(r.now())
	c := *s
	return &c, nil
}

func (r *memRepo) LockForUpdate(ctx context.Context, q db.Querier, ids []string, tenantID string) (map[string]*Slot, error) {
	out := map[string]*Slot{}
	for _, id := range ids {
		if s, ok := r.slots[id]; ok && s.TenantID == tenantID {
			c := *s
			out[id] = &c
		}
	}
	return out, nil
}

func (r *memRepo) AdjustCapacity(ctx context.Context, q db.Querier, id, tenantID string, delta int) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	next := s.AvailableBookings + delta
	if next < 0 || next > s.MaxBookings {
		return nil, ErrCapacityBounds
	}
	s.AvailableBookings = next
	s.IsAvailable = next > 0 && s.StartTime.After(r.now())
	c := *s
	return &c, nil
}

func (r *memRepo) Resize(ctx context.Context, q db.Querier, s *Slot) error {
	existing, ok := r.slots[s.ID]
	if !ok || existing.TenantID != s.TenantID {
		return ErrNotFound
	}
	*existing = *s
	return nil
}

type passTxRunner struct{}

func (passTxRunner) WithTx(ctx context.Context, fn func(q db.Querier) error) error {
	return fn(nil)
}

type stubCatalog struct {
	services map[string]bool
}

func (s *stubCatalog) Create(ctx context.Context, req catalog.CreateRequest) (*catalog.Service, error) {
	panic("not used")
}

func (s *stubCatalog) GetByID(ctx context.Context, id, tenantID string) (*catalog.Service, error) {
	if !s.services[id] {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Service{ID: id, TenantID: tenantID, IsActive: true}, nil
}

func (s *stubCatalog) List(ctx context.Context, filter catalog.Filter) ([]*catalog.Service, int, error) {
	panic("not used")
}

func (s *stubCatalog) Deactivate(ctx context.Context, id, tenantID string) error {
	panic("not used")
}

type capturePublisher struct {
	keys []string
}

func (p *capturePublisher) Publish(ctx context.Context, key string, payload any) {
	p.keys = append(p.keys, key)
}

const (
	tenant  = "tenant-a"
	svcID   = "service-1"
	adminID = "admin-1"
)

func newTestService() (*service, *memRepo, *capturePublisher, time.Time) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }
	repo := newMemRepo(nowFn)
	pub := &capturePublisher{}
	svc := &service{
		repo:      repo,
		catalog:   &stubCatalog{services: map[string]bool{svcID: true}},
		txRunner:  passTxRunner{},
		publisher: pub,
		now:       nowFn,
	}
	return svc, repo, pub, now
}

func TestCreateSlot(t *testing.T) {
	t.Run("starts with full capacity", func(t *testing.T) {
		svc, _, pub, now := newTestService()

		s, err := svc.Create(context.Background(), CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(2 * time.Hour),
			MaxBookings: 4,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, s.AvailableBookings)
		assert.True(t, s.IsAvailable)
		assert.False(t, s.IsRecurring)
		assert.Equal(t, []string{events.KeySlotCreated}, pub.keys)
	})

	t.Run("rejects past start", func(t *testing.T) {
		svc, _, _, now := newTestService()
		_, err := svc.Create(context.Background(), CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(-time.Hour),
			EndTime:     now.Add(time.Hour),
			MaxBookings: 1,
		})
		assert.ErrorIs(t, err, ErrStartTimePast)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		svc, _, _, now := newTestService()
		_, err := svc.Create(context.Background(), CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(2 * time.Hour),
			EndTime:     now.Add(time.Hour),
			MaxBookings: 1,
		})
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})

	t.Run("rejects zero capacity", func(t *testing.T) {
		svc, _, _, now := newTestService()
		_, err := svc.Create(context.Background(), CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(2 * time.Hour),
			MaxBookings: 0,
		})
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("rejects overlapping window", func(t *testing.T) {
		svc, _, _, now := newTestService()
		req := CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(2 * time.Hour),
			MaxBookings: 1,
		}
		_, err := svc.Create(context.Background(), req)
		require.NoError(t, err)

		req.StartTime = now.Add(90 * time.Minute)
		req.EndTime = now.Add(3 * time.Hour)
		_, err = svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, ErrTimeConflict)
	})

	t.Run("unknown service", func(t *testing.T) {
		svc, _, _, now := newTestService()
		_, err := svc.Create(context.Background(), CreateRequest{
			TenantID:    tenant,
			ServiceID:   "service-missing",
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(2 * time.Hour),
			MaxBookings: 1,
		})
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestCreateRecurringSlots(t *testing.T) {
	svc, repo, pub, now := newTestService()

	slots, err := svc.CreateRecurring(context.Background(), CreateRecurringRequest{
		CreateRequest: CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(24 * time.Hour),
			EndTime:     now.Add(25 * time.Hour),
			MaxBookings: 2,
		},
		Recurrence: Recurrence{Pattern: PatternDaily, Interval: 1, Occurrences: 5},
	})
	require.NoError(t, err)
	require.Len(t, slots, 5)
	assert.Len(t, repo.slots, 5)
	assert.Len(t, pub.keys, 5)

	for i, s := range slots {
		assert.True(t, s.IsRecurring)
		assert.Equal(t, 2, s.AvailableBookings)
		assert.Equal(t, now.Add(24*time.Hour).AddDate(0, 0, i), s.StartTime)
	}
}

func TestUpdateSlot(t *testing.T) {
	seed := func(t *testing.T, svc *service, now time.Time, capacity int) *Slot {
		s, err := svc.Create(context.Background(), CreateRequest{
			TenantID:    tenant,
			ServiceID:   svcID,
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(2 * time.Hour),
			MaxBookings: capacity,
		})
		require.NoError(t, err)
		return s
	}

	t.Run("grow keeps consumed reservations", func(t *testing.T) {
		svc, repo, _, now := newTestService()
		s := seed(t, svc, now, 3)

		// Two reservations held.
		_, err := repo.Reserve(context.Background(), nil, s.ID, tenant)
		require.NoError(t, err)
		_, err = repo.Reserve(context.Background(), nil, s.ID, tenant)
		require.NoError(t, err)

		newMax := 5
		updated, err := svc.Update(context.Background(), UpdateRequest{
			TenantID:    tenant,
			SlotID:      s.ID,
			MaxBookings: &newMax,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, updated.MaxBookings)
		assert.Equal(t, 3, updated.AvailableBookings)
	})

	t.Run("shrink below consumed is rejected", func(t *testing.T) {
		svc, repo, _, now := newTestService()
		s := seed(t, svc, now, 3)

		_, err := repo.Reserve(context.Background(), nil, s.ID, tenant)
		require.NoError(t, err)
		_, err = repo.Reserve(context.Background(), nil, s.ID, tenant)
		require.NoError(t, err)

		newMax := 1
		_, err = svc.Update(context.Background(), UpdateRequest{
			TenantID:    tenant,
			SlotID:      s.ID,
			MaxBookings: &newMax,
		})
		assert.ErrorIs(t, err, ErrCapacityBounds)
	})

	t.Run("shrink to exactly consumed leaves zero available", func(t *testing.T) {
		svc, repo, _, now := newTestService()
		s := seed(t, svc, now, 3)

		_, err := repo.Reserve(context.Background(), nil, s.ID, tenant)
		require.NoError(t, err)

		newMax := 1
		updated, err := svc.Update(context.Background(), UpdateRequest{
			TenantID:    tenant,
			SlotID:      s.ID,
			MaxBookings: &newMax,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.AvailableBookings)
		assert.False(t, updated.IsAvailable)
	})

	t.Run("manual availability override wins", func(t *testing.T) {
		svc, _, _, now := newTestService()
		s := seed(t, svc, now, 3)

		off := false
		updated, err := svc.Update(context.Background(), UpdateRequest{
			TenantID:    tenant,
			SlotID:      s.ID,
			IsAvailable: &off,
		})
		require.NoError(t, err)
		assert.False(t, updated.IsAvailable)
		assert.Equal(t, 3, updated.AvailableBookings)
	})

	t.Run("enable cannot override a full slot", func(t *testing.T) {
		svc, repo, _, now := newTestService()
		s := seed(t, svc, now, 1)

		_, err := repo.Reserve(context.Background(), nil, s.ID, tenant)
		require.NoError(t, err)

		on := true
		updated, err := svc.Update(context.Background(), UpdateRequest{
			TenantID:    tenant,
			SlotID:      s.ID,
			IsAvailable: &on,
		})
		require.NoError(t, err)
		assert.False(t, updated.IsAvailable)
		assert.Equal(t, 0, updated.AvailableBookings)
	})

	t.Run("enable cannot override a past slot", func(t *testing.T) {
		svc, repo, _, now := newTestService()
		s := seed(t, svc, now, 2)
		s.StartTime = now.Add(-time.Hour)
		require.NoError(t, repo.Resize(context.Background(), nil, s))

		on := true
		updated, err := svc.Update(context.Background(), UpdateRequest{
			TenantID:    tenant,
			SlotID:      s.ID,
			IsAvailable: &on,
		})
		require.NoError(t, err)
		assert.False(t, updated.IsAvailable)
	})
}

func TestDeleteSlot(t *testing.T) {
	svc, repo, pub, now := newTestService()
	s, err := svc.Create(context.Background(), CreateRequest{
		TenantID:    tenant,
		ServiceID:   svcID,
		StartTime:   now.Add(time.Hour),
		EndTime:     now.Add(2 * time.Hour),
		MaxBookings: 2,
	})
	require.NoError(t, err)

	t.Run("blocked while bookings reference it", func(t *testing.T) {
		repo.bookingCount[s.ID] = 1
		err := svc.Delete(context.Background(), s.ID, tenant)
		assert.ErrorIs(t, err, ErrHasBookings)
	})

	t.Run("deletes once unreferenced", func(t *testing.T) {
		repo.bookingCount[s.ID] = 0
		err := svc.Delete(context.Background(), s.ID, tenant)
		require.NoError(t, err)
		assert.Contains(t, pub.keys, events.KeySlotDeleted)
		_, err = svc.GetByID(context.Background(), s.ID, tenant)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAdjustCapacity(t *testing.T) {
	svc, _, pub, now := newTestService()
	s, err := svc.Create(context.Background(), CreateRequest{
		TenantID:    tenant,
		ServiceID:   svcID,
		StartTime:   now.Add(time.Hour),
		EndTime:     now.Add(2 * time.Hour),
		MaxBookings: 3,
	})
	require.NoError(t, err)

	t.Run("negative delta closes seats", func(t *testing.T) {
		adjusted, err := svc.AdjustCapacity(context.Background(), s.ID, tenant, -3, adminID)
		require.NoError(t, err)
		assert.Equal(t, 0, adjusted.AvailableBookings)
		assert.False(t, adjusted.IsAvailable)
		assert.Contains(t, pub.keys, events.KeySlotCapacityChanged)
	})

	t.Run("below zero is rejected", func(t *testing.T) {
		_, err := svc.AdjustCapacity(context.Background(), s.ID, tenant, -1, adminID)
		assert.ErrorIs(t, err, ErrCapacityBounds)
	})

	t.Run("reopening restores availability", func(t *testing.T) {
		adjusted, err := svc.AdjustCapacity(context.Background(), s.ID, tenant, 2, adminID)
		require.NoError(t, err)
		assert.Equal(t, 2, adjusted.AvailableBookings)
		assert.True(t, adjusted.IsAvailable)
	})

	t.Run("above max is rejected", func(t *testing.T) {
		_, err := svc.AdjustCapacity(context.Background(), s.ID, tenant, 2, adminID)
		assert.ErrorIs(t, err, ErrCapacityBounds)
	})
}
