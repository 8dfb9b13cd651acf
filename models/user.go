package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"gorm.io/gorm"
)

const (
	UserRoleAdmin    = "admin"
	UserRoleOperator = "operator"
)

// User is an operator of the sync service, not a Rindegastos identity.
type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Username   string    `gorm:"uniqueIndex;size:100;not null" json:"username" binding:"required"`
	Name       string    `gorm:"size:255" json:"name"`
	Role       string    `gorm:"size:20;default:operator" json:"role"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User

	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	err = db.WithContext(ctx).
		Where("username = ?", username).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("unauthorized")
		}
		return nil, err
	}
	_ = config.SetRedisObject("User:"+username, &user, time.Hour)
	return &user, nil
}
