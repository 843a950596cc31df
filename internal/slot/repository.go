package slot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, s *Slot) error
	CreateBatch(ctx context.Context, q db.Querier, slots []*Slot) error
	GetByID(ctx context.Context, id, tenantID string) (*Slot, error)
	ListAvailable(ctx context.Context, serviceID, tenantID string, from, to time.Time) ([]*Slot, error)
	HasOverlap(ctx context.Context, serviceID, tenantID string, start, end time.Time, excludeSlotID string) (bool, error)
	Delete(ctx context.Context, id, tenantID string) error
	CountBookings(ctx context.Context, slotID string) (int, error)

	// Ledger operations. All run on the caller's transaction so that a
	// capacity mutation commits or rolls back together with the booking
	// state change it belongs to.
	Reserve(ctx context.Context, q db.Querier, id, tenantID string) (*Slot, error)
	Release(ctx context.Context, q db.Querier, id, tenantID string) (*Slot, error)
	LockForUpdate(ctx context.Context, q db.Querier, ids []string, tenantID string) (map[string]*Slot, error)
	AdjustCapacity(ctx context.Context, q db.Querier, id, tenantID string, delta int) (*Slot, error)
	Resize(ctx context.Context, q db.Querier, s *Slot) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const slotColumns = "id, service_id, tenant_id, start_time, end_time, max_bookings, available_bookings, is_available, is_recurring, created_at, updated_at"

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID, &s.ServiceID, &s.TenantID, &s.StartTime, &s.EndTime,
		&s.MaxBookings, &s.AvailableBookings, &s.IsAvailable, &s.IsRecurring,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *pgxRepository) Create(ctx context.Context, s *Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("slots").
		Columns("service_id", "tenant_id", "start_time", "end_time", "max_bookings", "available_bookings", "is_available", "is_recurring").
		Values(s.ServiceID, s.TenantID, s.StartTime, s.EndTime, s.MaxBookings, s.AvailableBookings, s.IsAvailable, s.IsRecurring).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create slot query failed: %w", err)
	}

	return r.pool.QueryRow(ctx, query, args...).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *pgxRepository) CreateBatch(ctx context.Context, q db.Querier, slots []*Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	for _, s := range slots {
		query, args, err := psql.Insert("slots").
			Columns("service_id", "tenant_id", "start_time", "end_time", "max_bookings", "available_bookings", "is_available", "is_recurring").
			Values(s.ServiceID, s.TenantID, s.StartTime, s.EndTime, s.MaxBookings, s.AvailableBookings, s.IsAvailable, s.IsRecurring).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create slot query failed: %w", err)
		}
		if err := q.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("insert recurring slot failed: %w", err)
		}
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id, tenantID string) (*Slot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns).
		From("slots").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get slot query failed: %w", err)
	}

	s, err := scanSlot(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) ListAvailable(ctx context.Context, serviceID, tenantID string, from, to time.Time) ([]*Slot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns).
		From("slots").
		Where(squirrel.Eq{"service_id": serviceID, "tenant_id": tenantID, "is_available": true}).
		Where(squirrel.Gt{"available_bookings": 0}).
		Where(squirrel.GtOrEq{"start_time": from}).
		Where(squirrel.LtOrEq{"end_time": to}).
		Where(squirrel.Expr("start_time > now()")).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list available slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available slots failed: %w", err)
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot failed: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *pgxRepository) HasOverlap(ctx context.Context, serviceID, tenantID string, start, end time.Time, excludeSlotID string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	subQuery := psql.Select("1").
		From("slots").
		Where(squirrel.Eq{"service_id": serviceID, "tenant_id": tenantID}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start})

	if excludeSlotID != "" {
		subQuery = subQuery.Where(squirrel.NotEq{"id": excludeSlotID})
	}

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build check overlap query failed: %w", err)
	}

	query := "SELECT EXISTS (" + sql + ")"

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id, tenantID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("slots").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete slot query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) CountBookings(ctx context.Context, slotID string) (int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("count(*)").
		From("bookings").
		Where(squirrel.Eq{"slot_id": slotID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count bookings query failed: %w", err)
	}

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings failed: %w", err)
	}
	return n, nil
}

// Reserve consumes one unit of capacity with a single conditional update, so
// two transactions can never both observe the pre-decrement value. The guard
// also rejects slots whose start time has passed.
func (r *pgxRepository) Reserve(ctx context.Context, q db.Querier, id, tenantID string) (*Slot, error) {
	const query = `
		UPDATE slots
		SET available_bookings = available_bookings - 1,
		    is_available = (available_bookings - 1) > 0,
		    updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		  AND is_available AND available_bookings > 0 AND start_time > now()
		RETURNING ` + slotColumns

	s, err := scanSlot(q.QueryRow(ctx, query, id, tenantID))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reserve slot failed: %w", err)
	}

	// The guard did not match: distinguish missing from unavailable.
	return nil, r.classifyMiss(ctx, q, id, tenantID)
}

// Release returns one unit of capacity, capped at max_bookings. The slot
// becomes available again only while its start time is still in the future.
func (r *pgxRepository) Release(ctx context.Context, q db.Querier, id, tenantID string) (*Slot, error) {
	const query = `
		UPDATE slots
		SET available_bookings = LEAST(available_bookings + 1, max_bookings),
		    is_available = start_time > now(),
		    updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + slotColumns

	s, err := scanSlot(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("release slot failed: %w", err)
	}
	return s, nil
}

// LockForUpdate acquires row locks on the given slots in ascending id order.
// Every multi-slot transaction must go through here so that two transactions
// touching the same slot pair cannot deadlock by locking in opposite orders.
func (r *pgxRepository) LockForUpdate(ctx context.Context, q db.Querier, ids []string, tenantID string) (map[string]*Slot, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns).
		From("slots").
		Where(squirrel.Eq{"id": sorted, "tenant_id": tenantID}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock slots query failed: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock slots failed: %w", err)
	}
	defer rows.Close()

	locked := make(map[string]*Slot, len(sorted))
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked slot failed: %w", err)
		}
		locked[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock slots failed: %w", err)
	}
	return locked, nil
}

// AdjustCapacity applies an administrative delta to available_bookings under
// the row lock, rejecting any result outside [0, max_bookings].
func (r *pgxRepository) AdjustCapacity(ctx context.Context, q db.Querier, id, tenantID string, delta int) (*Slot, error) {
	locked, err := r.LockForUpdate(ctx, q, []string{id}, tenantID)
	if err != nil {
		return nil, err
	}
	s, ok := locked[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := s.AvailableBookings + delta
	if next < 0 || next > s.MaxBookings {
		return nil, ErrCapacityBounds
	}

	const query = `
		UPDATE slots
		SET available_bookings = $3,
		    is_available = ($3 > 0 AND start_time > now()),
		    updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + slotColumns

	updated, err := scanSlot(q.QueryRow(ctx, query, id, tenantID, next))
	if err != nil {
		return nil, fmt.Errorf("adjust slot capacity failed: %w", err)
	}
	return updated, nil
}

// Resize persists time-window and capacity changes computed by the service
// layer; the caller must hold the row lock.
func (r *pgxRepository) Resize(ctx context.Context, q db.Querier, s *Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("slots").
		Set("start_time", s.StartTime).
		Set("end_time", s.EndTime).
		Set("max_bookings", s.MaxBookings).
		Set("available_bookings", s.AvailableBookings).
		Set("is_available", s.IsAvailable).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": s.ID, "tenant_id": s.TenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resize slot query failed: %w", err)
	}

	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("resize slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) classifyMiss(ctx context.Context, q db.Querier, id, tenantID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("1").
		From("slots").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build classify slot query failed: %w", err)
	}

	var one int
	if err := q.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("classify slot failed: %w", err)
	}
	return ErrNotAvailable
}
