package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
)

func TestRecordPersistsViolation(t *testing.T) {
	gdb := setupIngestTestDB(t)
	recorder := NewViolationRecorder(gdb, nil, nil)

	recorder.Record(context.Background(), Violation{
		Type:           enums.ViolationSequenceOutOfOrder,
		EventType:      "org_access.updated",
		IdempotencyKey: "evt-seq-1",
		Message:        "stale sequence 4 for subject usr_9",
		FieldName:      StrPtr("sequence"),
		FieldValue:     StrPtr("4"),
		ExpectedValue:  StrPtr("> 7"),
	})

	var rows []models.ContractViolation
	require.NoError(t, gdb.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ViolationSequenceOutOfOrder, rows[0].ViolationType)
	assert.Equal(t, "evt-seq-1", rows[0].IdempotencyKey)
	require.NotNil(t, rows[0].FieldName)
	assert.Equal(t, "sequence", *rows[0].FieldName)
}

func TestRecordIsAppendOnlyAcrossRetries(t *testing.T) {
	gdb := setupIngestTestDB(t)
	recorder := NewViolationRecorder(gdb, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		recorder.Record(ctx, Violation{
			Type:           enums.ViolationSchema,
			EventType:      "org_access.updated",
			IdempotencyKey: "evt-schema-1",
			Message:        "grant entry missing crm_organization_id",
		})
	}

	var count int64
	require.NoError(t, gdb.Model(&models.ContractViolation{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestRecordOnNilRecorderIsNoOp(t *testing.T) {
	var recorder *ViolationRecorder
	recorder.Record(context.Background(), Violation{
		Type:    enums.ViolationPayloadHashDrift,
		Message: "should not panic",
	})
}
