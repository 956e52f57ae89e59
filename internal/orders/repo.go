package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
)

// Repo owns the sales_orders table on behalf of the CRM gateway. The gateway
// only cancels orders; it never creates or fulfils them.
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

// ListByCRMDealID returns every order tied to a deal.
func (r *Repo) ListByCRMDealID(ctx context.Context, crmDealID string) ([]models.SalesOrder, error) {
	var rows []models.SalesOrder
	err := r.db.WithContext(ctx).
		Where("crm_deal_id = ?", crmDealID).
		Order("order_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales order lookup")
	}
	return rows, nil
}

// CancelByCRMDealID cancels every not-yet-cancelled order for the deal and
// flags each for operator review. Returns how many orders moved; zero is a
// normal outcome when the deal never produced an order or all its orders were
// already cancelled.
func (r *Repo) CancelByCRMDealID(ctx context.Context, crmDealID, reason string) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.SalesOrder{}).
		Where("crm_deal_id = ? AND status <> ?", crmDealID, enums.SalesOrderStatusCancelled).
		Updates(map[string]any{
			"status":          enums.SalesOrderStatusCancelled,
			"action_required": true,
			"cancel_reason":   reason,
			"cancelled_at":    &now,
		})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "sales order cancel")
	}
	return res.RowsAffected, nil
}
