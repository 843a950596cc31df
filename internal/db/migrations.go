package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS services (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id UUID NOT NULL,
	provider_id UUID NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price NUMERIC(12,2) NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	duration_minutes INT NOT NULL DEFAULT 60,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS slots (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	service_id UUID NOT NULL REFERENCES services(id),
	tenant_id UUID NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	max_bookings INT NOT NULL,
	available_bookings INT NOT NULL,
	is_available BOOLEAN NOT NULL DEFAULT TRUE,
	is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT slots_time_order CHECK (end_time > start_time),
	CONSTRAINT slots_capacity_min CHECK (max_bookings >= 1),
	CONSTRAINT slots_capacity_bounds CHECK (available_bookings >= 0 AND available_bookings <= max_bookings)
);

CREATE INDEX IF NOT EXISTS idx_slots_service_start ON slots(tenant_id, service_id, start_time);

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	customer_id UUID NOT NULL,
	service_id UUID NOT NULL REFERENCES services(id),
	slot_id UUID NOT NULL REFERENCES slots(id),
	tenant_id UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	booking_date TIMESTAMPTZ NOT NULL,
	price NUMERIC(12,2) NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	notes TEXT NOT NULL DEFAULT '',
	cancellation_reason TEXT NOT NULL DEFAULT '',
	cancelled_at TIMESTAMPTZ,
	cancelled_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(tenant_id, customer_id);
CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(slot_id);

-- Backstop for the duplicate-booking rule: at most one capacity-consuming
-- booking per (customer, slot), even if two create requests race.
CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active_customer_slot
	ON bookings(customer_id, slot_id)
	WHERE status IN ('pending', 'confirmed');

CREATE TABLE IF NOT EXISTS booking_history (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	seq BIGSERIAL,
	booking_id UUID NOT NULL REFERENCES bookings(id),
	tenant_id UUID NOT NULL,
	old_status TEXT NOT NULL DEFAULT '',
	new_status TEXT NOT NULL,
	changed_by UUID NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_booking_history_booking ON booking_history(booking_id, seq);
`

// Migrate applies the schema. Statements are idempotent so it is safe to run
// on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
