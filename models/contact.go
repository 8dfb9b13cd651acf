package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"gorm.io/gorm"
)

// Contact is a counterparty in the books (what Rindegastos documents call the
// "proveedor"). Matching is done on TaxId (the Chilean RUT).
type Contact struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	TaxId      string    `gorm:"index;size:20" json:"tax_id"`
	Email      string    `gorm:"size:255" json:"email"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindContactByTaxId returns the first contact matching the tax id, or nil
// when none matches. Absence is not an error; the caller degrades to an
// unlinked record.
func FindContactByTaxId(ctx context.Context, businessId string, taxId string) (*Contact, error) {
	db := config.GetDB()

	var result Contact
	err := db.WithContext(ctx).
		Where("business_id = ? AND tax_id = ?", businessId, taxId).
		Order("id").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}
