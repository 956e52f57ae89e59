package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgGrant is one row of a subject's organization-access snapshot. Inactive
// grants are never stored; the snapshot holds active grants only and is fully
// replaced on every applied org_access.updated event.
type OrgGrant struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SubjectID      string    `gorm:"column:subject_id;not null;uniqueIndex:ux_org_grants_subject_org"`
	OrganizationID string    `gorm:"column:organization_id;not null;uniqueIndex:ux_org_grants_subject_org"`
	RoleInOrg      string    `gorm:"column:role_in_org;not null"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
