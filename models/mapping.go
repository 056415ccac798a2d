package models

import (
	"strconv"
	"strings"
	"time"
)

// ProductMapping links one Stripe product to one or more WooCommerce
// products. Maintained by the admin surface, read-only to the pipeline.
type ProductMapping struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StripeID      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"stripe_id"`
	Name          string    `gorm:"type:varchar(128);not null" json:"name"`
	WooProductIDs string    `gorm:"type:varchar(256)" json:"woo_product_ids"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SetWooProductIDs stores the target ids as a comma-separated list.
func (m *ProductMapping) SetWooProductIDs(ids []int64) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	m.WooProductIDs = strings.Join(parts, ",")
}

// GetWooProductIDs returns the target ids, skipping empty segments.
func (m *ProductMapping) GetWooProductIDs() []int64 {
	var ids []int64
	for _, part := range strings.Split(m.WooProductIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Setting is one admin-owned configuration value (Woo and Stripe
// credentials live here). The pipeline only ever reads a snapshot.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:varchar(256);not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
