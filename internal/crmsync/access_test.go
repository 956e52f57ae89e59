package crmsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
)

func grantOrgs(t *testing.T, gdb *gorm.DB, subjectID string) []string {
	t.Helper()
	var rows []models.OrgGrant
	require.NoError(t, gdb.Where("subject_id = ?", subjectID).Order("organization_id ASC").Find(&rows).Error)
	orgs := make([]string, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, row.OrganizationID)
	}
	return orgs
}

func violationCount(t *testing.T, gdb *gorm.DB, violationType enums.ViolationType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, gdb.Model(&models.ContractViolation{}).
		Where("violation_type = ?", violationType).
		Count(&count).Error)
	return count
}

func TestOrgAccessAppliesSnapshot(t *testing.T) {
	service, gdb := setupServiceTest(t)

	result, err := service.Dispatch(context.Background(), rawInbound("org_access.updated", "evt-acc-1", `{
		"subject_id": "usr_10",
		"seq": 1,
		"grants": [
			{"crm_organization_id": "org_a", "role": "admin"},
			{"crm_organization_id": "org_b", "role": "viewer"}
		]
	}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Ignored)

	assert.Equal(t, []string{"org_a", "org_b"}, grantOrgs(t, gdb, "usr_10"))
}

func TestOrgAccessSequenceMonotonicity(t *testing.T) {
	service, gdb := setupServiceTest(t)
	ctx := context.Background()

	_, err := service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-2a", `{
		"subject_id": "usr_11",
		"seq": 5,
		"grants": [{"crm_organization_id": "org_a", "role": "admin"}]
	}`))
	require.NoError(t, err)

	result, err := service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-2b", `{
		"subject_id": "usr_11",
		"seq": 3,
		"grants": [{"crm_organization_id": "org_z", "role": "viewer"}]
	}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Ignored)

	// The seq=5 snapshot survives, and exactly one out-of-order violation is
	// on record.
	assert.Equal(t, []string{"org_a"}, grantOrgs(t, gdb, "usr_11"))
	assert.EqualValues(t, 1, violationCount(t, gdb, enums.ViolationSequenceOutOfOrder))

	var state models.SyncState
	require.NoError(t, gdb.Where("subject_id = ?", "usr_11").First(&state).Error)
	assert.EqualValues(t, 5, state.LastAppliedSeq)
}

func TestOrgAccessReplacementIsTotal(t *testing.T) {
	service, gdb := setupServiceTest(t)
	ctx := context.Background()

	_, err := service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-3a", `{
		"subject_id": "usr_12",
		"seq": 1,
		"grants": [{"crm_organization_id": "org_a", "role": "admin"}]
	}`))
	require.NoError(t, err)

	_, err = service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-3b", `{
		"subject_id": "usr_12",
		"seq": 2,
		"grants": [{"crm_organization_id": "org_b", "role": "editor"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"org_b"}, grantOrgs(t, gdb, "usr_12"))
}

func TestOrgAccessEmptySnapshot(t *testing.T) {
	service, gdb := setupServiceTest(t)
	ctx := context.Background()

	_, err := service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-4a", `{
		"subject_id": "usr_13",
		"seq": 1,
		"grants": [{"crm_organization_id": "org_a", "role": "admin"}]
	}`))
	require.NoError(t, err)

	result, err := service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-4b", `{
		"subject_id": "usr_13",
		"seq": 2,
		"grants": []
	}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Ignored)

	assert.Empty(t, grantOrgs(t, gdb, "usr_13"))

	var state models.SyncState
	require.NoError(t, gdb.Where("subject_id = ?", "usr_13").First(&state).Error)
	assert.EqualValues(t, 2, state.LastAppliedSeq)
}

func TestOrgAccessMalformedGrantTolerance(t *testing.T) {
	service, gdb := setupServiceTest(t)

	result, err := service.Dispatch(context.Background(), rawInbound("org_access.updated", "evt-acc-5", `{
		"subject_id": "usr_14",
		"seq": 1,
		"grants": [
			{"crm_organization_id": "", "role": "admin"},
			{"crm_organization_id": "org_a", "role": "viewer"}
		]
	}`))
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, []string{"org_a"}, grantOrgs(t, gdb, "usr_14"))
	assert.EqualValues(t, 1, violationCount(t, gdb, enums.ViolationSchema))
}

func TestOrgAccessInactiveGrantsDropped(t *testing.T) {
	service, gdb := setupServiceTest(t)

	_, err := service.Dispatch(context.Background(), rawInbound("org_access.updated", "evt-acc-6", `{
		"subject_id": "usr_15",
		"seq": 1,
		"grants": [
			{"crm_organization_id": "org_a", "role": "admin", "is_active": false},
			{"crm_organization_id": "org_b", "role": "viewer", "is_active": true},
			{"crm_organization_id": "org_c", "role": "viewer"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"org_b", "org_c"}, grantOrgs(t, gdb, "usr_15"))
	assert.EqualValues(t, 1, violationCount(t, gdb, enums.ViolationSchema))
}

func TestOrgAccessDeduplicatesLastOneWins(t *testing.T) {
	service, gdb := setupServiceTest(t)

	_, err := service.Dispatch(context.Background(), rawInbound("org_access.updated", "evt-acc-7", `{
		"subject_id": "usr_16",
		"seq": 1,
		"grants": [
			{"crm_organization_id": "org_a", "role": "viewer"},
			{"crm_organization_id": "org_a", "role": "admin"}
		]
	}`))
	require.NoError(t, err)

	var rows []models.OrgGrant
	require.NoError(t, gdb.Where("subject_id = ?", "usr_16").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "admin", rows[0].RoleInOrg)
	assert.True(t, rows[0].IsActive)
}

func TestOrgAccessMalformedShape(t *testing.T) {
	service, _ := setupServiceTest(t)
	ctx := context.Background()

	_, err := service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-8a", `{"seq": 1, "grants": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject_id")

	_, err = service.Dispatch(ctx, rawInbound("org_access.updated", "evt-acc-8b", `{"subject_id": "usr_17", "grants": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seq")
}
