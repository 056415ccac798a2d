package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
	"github.com/k0go07022003/StripeWoocommerce-Sync/repository"

	"go.uber.org/zap"
)

// MappingFailure records one line item that could not be mapped. These
// are recoverable: the order is still created from the items that did map.
type MappingFailure struct {
	ProductID string          `json:"product_id"`
	Err       *ReconcileError `json:"error"`
}

// LineItemMapper expands Stripe line items into WooCommerce line items
// through the product-mapping store.
type LineItemMapper struct {
	store  repository.MappingStore
	logger *zap.Logger
}

func NewLineItemMapper(store repository.MappingStore, logger *zap.Logger) *LineItemMapper {
	return &LineItemMapper{store: store, logger: logger}
}

// Map converts the session's line items. Unmapped products are skipped
// and reported; a run where nothing maps fails with no_mappable_items.
func (m *LineItemMapper) Map(ctx context.Context, sessionID string, items []models.LineItem) ([]models.WooLineItem, []MappingFailure, *ReconcileError) {
	var mapped []models.WooLineItem
	var failures []MappingFailure

	for _, item := range items {
		mapping, err := m.store.Get(ctx, item.ProductID)
		if err != nil {
			if !errors.Is(err, repository.ErrMappingNotFound) {
				m.logger.Error("Mapping store lookup failed",
					zap.String("session_id", sessionID),
					zap.String("stripe_product_id", item.ProductID),
					zap.Error(err),
				)
			}
			failures = append(failures, MappingFailure{
				ProductID: item.ProductID,
				Err:       NewError(ErrKindMappingNotFound, fmt.Sprintf("no mapping for Stripe product %s", item.ProductID), err),
			})
			continue
		}

		targets := mapping.GetWooProductIDs()
		if len(targets) == 0 {
			failures = append(failures, MappingFailure{
				ProductID: item.ProductID,
				Err:       NewError(ErrKindMappingNotFound, fmt.Sprintf("mapping for Stripe product %s has no targets", item.ProductID), nil),
			})
			continue
		}

		for i, wooID := range targets {
			mapped = append(mapped, models.WooLineItem{
				ProductID: wooID,
				Quantity:  item.Quantity,
				Total:     splitAmount(item.AmountTotal, len(targets), i),
			})
		}
	}

	for _, f := range failures {
		m.logger.Warn("Line item skipped",
			zap.String("session_id", sessionID),
			zap.String("stripe_product_id", f.ProductID),
			zap.Error(f.Err),
		)
	}

	if len(mapped) == 0 && len(items) > 0 {
		return nil, failures, NewError(ErrKindNoMappableItems, "no line items could be mapped", nil)
	}
	return mapped, failures, nil
}

// splitAmount allocates one share of an amount in minor units across n
// targets using integer-cent arithmetic: every target gets total/n
// cents, and the remainder cents go one each to the first total%n
// targets. Rendered as a major-unit string with two decimals.
func splitAmount(totalMinor int64, n, index int) string {
	share := totalMinor / int64(n)
	if int64(index) < totalMinor%int64(n) {
		share++
	}
	return fmt.Sprintf("%d.%02d", share/100, share%100)
}
