package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, q db.Querier, b *Booking) error
	GetByID(ctx context.Context, id, tenantID string) (*Booking, error)
	GetForUpdate(ctx context.Context, q db.Querier, id, tenantID string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	UpdateStatus(ctx context.Context, q db.Querier, id, tenantID string, status Status, reason, changedBy string) error
	SetSlot(ctx context.Context, q db.Querier, id, tenantID, slotID string) error
	SetNotes(ctx context.Context, q db.Querier, id, tenantID, notes string) error
	InsertHistory(ctx context.Context, q db.Querier, h *History) error
	ListHistory(ctx context.Context, bookingID, tenantID string) ([]*History, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const bookingColumns = "id, customer_id, service_id, slot_id, tenant_id, status, booking_date, price, currency, notes, cancellation_reason, cancelled_at, cancelled_by, created_at, updated_at"

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.ServiceID, &b.SlotID, &b.TenantID, &b.Status,
		&b.BookingDate, &b.Price, &b.Currency, &b.Notes, &b.CancellationReason,
		&b.CancelledAt, &b.CancelledBy,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, q db.Querier, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("bookings").
		Columns("customer_id", "service_id", "slot_id", "tenant_id", "status", "booking_date", "price", "currency", "notes").
		Values(b.CustomerID, b.ServiceID, b.SlotID, b.TenantID, b.Status, b.BookingDate, b.Price, b.Currency, b.Notes).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	err = q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_bookings_active_customer_slot") {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id, tenantID string) (*Booking, error) {
	return r.get(ctx, r.pool, id, tenantID, false)
}

// GetForUpdate locks the booking row for the rest of the transaction, so
// concurrent lifecycle operations on the same booking serialize here.
func (r *pgxRepository) GetForUpdate(ctx context.Context, q db.Querier, id, tenantID string) (*Booking, error) {
	return r.get(ctx, q, id, tenantID, true)
}

func (r *pgxRepository) get(ctx context.Context, q db.Querier, id, tenantID string, forUpdate bool) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select(bookingColumns).
		From("bookings").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select(bookingColumns + ", count(*) OVER() AS total").
		From("bookings").
		Where(squirrel.Eq{"tenant_id": filter.TenantID})

	if filter.CustomerID != "" {
		builder = builder.Where(squirrel.Eq{"customer_id": filter.CustomerID})
	}
	if filter.ServiceID != "" {
		builder = builder.Where(squirrel.Eq{"service_id": filter.ServiceID})
	}
	if filter.SlotID != "" {
		builder = builder.Where(squirrel.Eq{"slot_id": filter.SlotID})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"booking_date": *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(squirrel.LtOrEq{"booking_date": *filter.To})
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	builder = builder.OrderBy("booking_date DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var (
		bookings []*Booking
		total    int
	)
	for rows.Next() {
		var b Booking
		err := rows.Scan(
			&b.ID, &b.CustomerID, &b.ServiceID, &b.SlotID, &b.TenantID, &b.Status,
			&b.BookingDate, &b.Price, &b.Currency, &b.Notes, &b.CancellationReason,
			&b.CancelledAt, &b.CancelledBy,
			&b.CreatedAt, &b.UpdatedAt, &total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}
	return bookings, total, rows.Err()
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, q db.Querier, id, tenantID string, status Status, reason, changedBy string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Update("bookings").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID})
	if status == StatusCancelled {
		builder = builder.
			Set("cancellation_reason", reason).
			Set("cancelled_at", squirrel.Expr("now()")).
			Set("cancelled_by", changedBy)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update booking status query failed: %w", err)
	}

	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetSlot(ctx context.Context, q db.Querier, id, tenantID, slotID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("bookings").
		Set("slot_id", slotID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set booking slot query failed: %w", err)
	}

	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set booking slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetNotes(ctx context.Context, q db.Querier, id, tenantID, notes string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("bookings").
		Set("notes", notes).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set booking notes query failed: %w", err)
	}

	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set booking notes failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) InsertHistory(ctx context.Context, q db.Querier, h *History) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("booking_history").
		Columns("booking_id", "tenant_id", "old_status", "new_status", "changed_by", "reason").
		Values(h.BookingID, h.TenantID, h.OldStatus, h.NewStatus, h.ChangedBy, h.Reason).
		Suffix("RETURNING id, seq, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history query failed: %w", err)
	}

	if err := q.QueryRow(ctx, query, args...).Scan(&h.ID, &h.Seq, &h.CreatedAt); err != nil {
		return fmt.Errorf("insert booking history failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListHistory(ctx context.Context, bookingID, tenantID string) ([]*History, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id, booking_id, tenant_id, seq, old_status, new_status, changed_by, reason, created_at").
		From("booking_history").
		Where(squirrel.Eq{"booking_id": bookingID, "tenant_id": tenantID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list history query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list booking history failed: %w", err)
	}
	defer rows.Close()

	var history []*History
	for rows.Next() {
		var h History
		err := rows.Scan(&h.ID, &h.BookingID, &h.TenantID, &h.Seq, &h.OldStatus, &h.NewStatus, &h.ChangedBy, &h.Reason, &h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan booking history failed: %w", err)
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}
