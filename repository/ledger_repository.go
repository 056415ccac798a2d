package repository

import (
	"context"
	"errors"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrClaimHeld signals that another run inserted the ledger row first
// and has not finished yet.
var ErrClaimHeld = errors.New("reconciliation claim held by another run")

// LedgerRepository guards order creation with a storage-level unique
// constraint on the session id. Claim must succeed before a run may
// submit an order; a conflict is treated as an idempotency hit.
type LedgerRepository interface {
	// Claim tries to insert the ledger row for the session. It returns
	// (nil, nil) when this run won the claim, the existing row when a
	// finished run already recorded an order, and ErrClaimHeld when a
	// concurrent run holds an unfinished claim.
	Claim(ctx context.Context, sessionID, paymentIntentID string) (*models.ReconciledOrder, error)
	// Complete records the created order id against the claim.
	Complete(ctx context.Context, sessionID string, wooOrderID int64) error
	// Release drops an unfinished claim so a redelivery can retry.
	Release(ctx context.Context, sessionID string) error
	Find(ctx context.Context, sessionID string) (*models.ReconciledOrder, error)
}

type gormLedgerRepo struct {
	db *gorm.DB
}

func NewGormLedgerRepo(db *gorm.DB) LedgerRepository {
	return &gormLedgerRepo{db: db}
}

func (r *gormLedgerRepo) Claim(ctx context.Context, sessionID, paymentIntentID string) (*models.ReconciledOrder, error) {
	row := models.ReconciledOrder{SessionID: sessionID, PaymentIntentID: paymentIntentID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return nil, nil
	}

	existing, err := r.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing.WooOrderID == 0 {
		return nil, ErrClaimHeld
	}
	return existing, nil
}

func (r *gormLedgerRepo) Complete(ctx context.Context, sessionID string, wooOrderID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.ReconciledOrder{}).
		Where("session_id = ?", sessionID).
		Update("woo_order_id", wooOrderID).Error
}

func (r *gormLedgerRepo) Release(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND woo_order_id = 0", sessionID).
		Delete(&models.ReconciledOrder{}).Error
}

func (r *gormLedgerRepo) Find(ctx context.Context, sessionID string) (*models.ReconciledOrder, error) {
	var row models.ReconciledOrder
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
