package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"gorm.io/gorm"
)

type Employee struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string `gorm:"size:255;not null" json:"name" binding:"required"`
	WorkEmail  string `gorm:"size:255" json:"work_email"`
	// RindegastosUserId is the employee's user id on the Rindegastos side,
	// resolved from WorkEmail via the getUser endpoint. Empty when the email
	// has no Rindegastos account.
	RindegastosUserId string    `gorm:"size:64" json:"rindegastos_user_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetEmployee(ctx context.Context, businessId string, id int) (*Employee, error) {
	db := config.GetDB()

	var result Employee
	err := db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessId).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func UpdateEmployeeRindegastosUserId(ctx context.Context, businessId string, id int, userId string) error {
	db := config.GetDB()

	return db.WithContext(ctx).
		Model(&Employee{}).
		Where("id = ? AND business_id = ?", id, businessId).
		Update("rindegastos_user_id", userId).Error
}
