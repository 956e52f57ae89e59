package grants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veltex/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
)

// ErrStaleSequence reports a snapshot whose sequence is not strictly greater
// than the last applied one for the subject.
var ErrStaleSequence = errors.New("snapshot sequence is not newer than the applied state")

// GrantInput is one active organization grant from an access snapshot.
type GrantInput struct {
	OrganizationID string
	RoleInOrg      string
}

// Repo owns the org_grants snapshot table and its sync_states ordering guard.
type Repo struct {
	db *gorm.DB
}

func NewRepo(gdb *gorm.DB) *Repo {
	return &Repo{db: gdb}
}

// WithTx returns a repo bound to the given transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

// LastAppliedSeq returns the subject's applied sequence and whether any
// snapshot has been applied before.
func (r *Repo) LastAppliedSeq(ctx context.Context, subjectID string) (int64, bool, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync state lookup")
	}
	return state.LastAppliedSeq, true, nil
}

// ListActive returns the subject's current grant snapshot.
func (r *Repo) ListActive(ctx context.Context, subjectID string) ([]models.OrgGrant, error) {
	var rows []models.OrgGrant
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("organization_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant snapshot lookup")
	}
	return rows, nil
}

// ApplySnapshot replaces the subject's entire grant set with the given one,
// guarded by the snapshot sequence. The guard and the replacement commit
// atomically: either the sequence advances and the new snapshot is visible, or
// nothing changes. A sequence at or below the applied one returns
// ErrStaleSequence and leaves the stored snapshot untouched.
func (r *Repo) ApplySnapshot(ctx context.Context, subjectID string, seq int64, grants []GrantInput) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// First sighting of the subject gets a zero-sequence baseline so the
		// guard below covers it too.
		baseline := models.SyncState{SubjectID: subjectID, LastAppliedSeq: 0}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&baseline).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync state init")
		}

		guard := tx.Model(&models.SyncState{}).
			Where("subject_id = ? AND last_applied_seq < ?", subjectID, seq).
			Update("last_applied_seq", seq)
		if guard.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, guard.Error, "sequence guard")
		}
		if guard.RowsAffected == 0 {
			return ErrStaleSequence
		}

		if err := tx.Where("subject_id = ?", subjectID).
			Delete(&models.OrgGrant{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant snapshot delete")
		}

		if len(grants) == 0 {
			return nil
		}

		rows := make([]models.OrgGrant, 0, len(grants))
		for _, grant := range grants {
			rows = append(rows, models.OrgGrant{
				ID:             uuid.New(),
				SubjectID:      subjectID,
				OrganizationID: grant.OrganizationID,
				RoleInOrg:      grant.RoleInOrg,
				IsActive:       true,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant snapshot insert")
		}
		return nil
	})
}
