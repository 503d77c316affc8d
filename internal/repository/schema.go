package repository

import (
	"context"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
)

// Number sequences are dedicated database sequences, never derived from row
// counts, so numbers stay unique under concurrent creation and deletion.
const schemaDDL = `
CREATE SEQUENCE IF NOT EXISTS request_number_seq;
CREATE SEQUENCE IF NOT EXISTS trip_number_seq;
CREATE SEQUENCE IF NOT EXISTS claim_number_seq;

CREATE TABLE IF NOT EXISTS requests (
    id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    request_number     TEXT NOT NULL UNIQUE,
    type               TEXT NOT NULL,
    status             TEXT NOT NULL,
    requester_id       TEXT NOT NULL,
    factory_id         TEXT NOT NULL,

    route              TEXT,
    passenger_count    INTEGER,

    yard               TEXT,
    cbm                DOUBLE PRECISION,
    cutoff_time        TIMESTAMPTZ,

    pickup_location    TEXT,
    drop_location      TEXT,
    time_window_start  TIMESTAMPTZ,
    time_window_end    TIMESTAMPTZ,
    purpose            TEXT,
    department         TEXT,

    requested_date     TIMESTAMPTZ NOT NULL,
    notes              TEXT,

    approver_id        TEXT,
    approved_at        TIMESTAMPTZ,
    approval_comment   TEXT,

    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status);
CREATE INDEX IF NOT EXISTS idx_requests_type   ON requests (type);

CREATE TABLE IF NOT EXISTS trips (
    id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    trip_number        TEXT NOT NULL UNIQUE,
    status             TEXT NOT NULL,

    vehicle_id         TEXT NOT NULL,
    driver_id          TEXT,
    vendor_id          TEXT,

    planned_start_time TIMESTAMPTZ NOT NULL,
    planned_end_time   TIMESTAMPTZ NOT NULL,
    actual_start_time  TIMESTAMPTZ,
    actual_end_time    TIMESTAMPTZ,

    start_odometer     INTEGER,
    end_odometer       INTEGER,

    passengers_boarded INTEGER,
    incidents          TEXT,

    is_pooled          BOOLEAN NOT NULL DEFAULT FALSE,

    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trips_status ON trips (status);

CREATE TABLE IF NOT EXISTS trip_requests (
    trip_id    UUID NOT NULL REFERENCES trips (id),
    request_id UUID NOT NULL REFERENCES requests (id),
    position   INTEGER NOT NULL,
    PRIMARY KEY (trip_id, request_id)
);

CREATE TABLE IF NOT EXISTS gate_logs (
    id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    trip_id             UUID NOT NULL REFERENCES trips (id),
    vehicle_id          TEXT NOT NULL,

    planned_time        TIMESTAMPTZ NOT NULL,
    in_time             TIMESTAMPTZ NOT NULL,
    out_time            TIMESTAMPTZ,

    delay_minutes       INTEGER NOT NULL DEFAULT 0,
    is_delayed          BOOLEAN NOT NULL DEFAULT FALSE,

    remarks             TEXT,
    security_officer_id TEXT NOT NULL,

    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS penalties (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    trip_id       UUID NOT NULL REFERENCES trips (id),
    gate_log_id   UUID NOT NULL UNIQUE REFERENCES gate_logs (id),

    delay_minutes INTEGER NOT NULL,
    amount        BIGINT NOT NULL,

    status        TEXT NOT NULL,

    confirmed_by  TEXT,
    confirmed_at  TIMESTAMPTZ,

    waived_by     TEXT,
    waived_at     TIMESTAMPTZ,
    waiver_reason TEXT,

    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS claims (
    id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    claim_number      TEXT NOT NULL UNIQUE,

    employee_id       TEXT NOT NULL,
    linked_request_id UUID,

    trip_date         TIMESTAMPTZ NOT NULL,
    reason            TEXT NOT NULL,
    amount            BIGINT NOT NULL,

    receipt_url       TEXT,

    status            TEXT NOT NULL,

    approver_id       TEXT,
    approved_at       TIMESTAMPTZ,
    approval_comment  TEXT,

    reimbursed_at     TIMESTAMPTZ,

    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS settings (
    id                     TEXT PRIMARY KEY,
    grace_minutes          INTEGER NOT NULL DEFAULT 15,
    penalty_amount         BIGINT NOT NULL DEFAULT 10000,
    pooling_window_minutes INTEGER NOT NULL DEFAULT 30,
    working_hours_start    TEXT NOT NULL DEFAULT '08:00',
    working_hours_end      TEXT NOT NULL DEFAULT '18:00',
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
INSERT INTO settings (id) VALUES ('settings-1') ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS activity_logs (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    action      TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    details     TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_activity_logs_entity ON activity_logs (entity_id, created_at DESC);
`

// EnsureSchema creates tables, sequences and the singleton settings row.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, schemaDDL); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to ensure schema")
	}
	return nil
}
