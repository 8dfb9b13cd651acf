package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"github.com/google/uuid"
)

type Business struct {
	ID               uuid.UUID `gorm:"primary_key" json:"id"`
	Name             string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email            string    `gorm:"size:255" json:"email"`
	Country          string    `gorm:"size:100" json:"country"`
	BaseCurrencyCode string    `gorm:"size:10;default:CLP" json:"base_currency_code"`
	// RindegastosToken is the per-company API token (one token per company).
	RindegastosToken string    `gorm:"type:text" json:"rindegastos_token"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+b.ID.String(), b, 0)
}

func GetBusinessById(ctx context.Context, id string) (*Business, error) {

	var result Business

	exists, err := config.GetRedisObject("Business:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// ListSyncableBusinesses returns the active businesses that have a
// Rindegastos token configured, for the scheduled import tick.
func ListSyncableBusinesses(ctx context.Context) ([]*Business, error) {
	db := config.GetDB()

	var results []*Business
	err := db.WithContext(ctx).
		Where("is_active = ? AND rindegastos_token <> ''", true).
		Order("created_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetBusiness(ctx context.Context) (*Business, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return GetBusinessById(ctx, businessId)
}
