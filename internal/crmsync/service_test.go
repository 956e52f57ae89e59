package crmsync

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veltex/warehouse-backend/internal/grants"
	"github.com/veltex/warehouse-backend/internal/ingest"
	"github.com/veltex/warehouse-backend/internal/orders"
	"github.com/veltex/warehouse-backend/internal/reservations"
	"github.com/veltex/warehouse-backend/pkg/logger"
)

var crmsyncTestSchema = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  crm_deal_id TEXT NOT NULL UNIQUE,
  deal_name TEXT,
  customer_name TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  release_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS reservation_lines (
  id TEXT PRIMARY KEY,
  reservation_id TEXT NOT NULL,
  quality TEXT NOT NULL,
  color TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  unit TEXT NOT NULL DEFAULT 'm',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (reservation_id, quality, color)
);`,
	`CREATE TABLE IF NOT EXISTS sales_orders (
  id TEXT PRIMARY KEY,
  crm_deal_id TEXT NOT NULL,
  order_number INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  action_required INTEGER NOT NULL DEFAULT 0,
  cancel_reason TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS sync_states (
  subject_id TEXT PRIMARY KEY,
  last_applied_seq INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS org_grants (
  id TEXT PRIMARY KEY,
  subject_id TEXT NOT NULL,
  organization_id TEXT NOT NULL,
  role_in_org TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  UNIQUE (subject_id, organization_id)
);`,
	`CREATE TABLE IF NOT EXISTS contract_violations (
  id TEXT PRIMARY KEY,
  violation_type TEXT NOT NULL,
  event_type TEXT NOT NULL,
  idempotency_key TEXT NOT NULL,
  message TEXT NOT NULL,
  field_name TEXT,
  field_value TEXT,
  expected_value TEXT,
  webhook_event_id TEXT,
  created_at DATETIME
);`,
}

var crmsyncTestTables = []string{
	"reservation_lines",
	"reservations",
	"sales_orders",
	"org_grants",
	"sync_states",
	"contract_violations",
}

func setupServiceTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range crmsyncTestSchema {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	for _, table := range crmsyncTestTables {
		require.NoError(t, gdb.Exec("DELETE FROM "+table).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "crmsync-test", Output: io.Discard})

	service, err := NewService(
		reservations.NewRepo(gdb),
		orders.NewRepo(gdb),
		grants.NewRepo(gdb),
		ingest.NewViolationRecorder(gdb, logg, nil),
		logg,
	)
	require.NoError(t, err)

	return service, gdb
}

func rawInbound(eventType, key, payload string) InboundEvent {
	return InboundEvent{
		EventType:      eventType,
		IdempotencyKey: key,
		Payload:        json.RawMessage(payload),
	}
}
