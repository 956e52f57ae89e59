package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupIngestTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	webhookEvents := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  idempotency_key TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  attempt_count INTEGER NOT NULL DEFAULT 0,
  payload_hash TEXT NOT NULL,
  hmac_verified INTEGER NOT NULL DEFAULT 0,
  received_signature TEXT,
  received_timestamp DATETIME,
  error_message TEXT,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	contractViolations := `
CREATE TABLE IF NOT EXISTS contract_violations (
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
);`

	require.NoError(t, db.Exec(webhookEvents).Error)
	require.NoError(t, db.Exec(contractViolations).Error)

	require.NoError(t, db.Exec(`DELETE FROM webhook_events`).Error)
	require.NoError(t, db.Exec(`DELETE FROM contract_violations`).Error)

	return db
}
