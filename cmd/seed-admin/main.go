// seed-admin bootstraps a business and its admin operator so the sync
// service has something to authenticate against.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   SEED_BUSINESS_NAME="Acme SpA" RINDEGASTOS_TOKEN=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	adminUsername = "gastosAdmin"
	adminName     = "Gastos Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	businessName := os.Getenv("SEED_BUSINESS_NAME")
	if businessName == "" {
		businessName = "Default Business"
	}

	var biz models.Business
	err := db.WithContext(ctx).Where("name = ?", businessName).First(&biz).Error
	if err == gorm.ErrRecordNotFound {
		active := true
		biz = models.Business{
			ID:               uuid.New(),
			Name:             businessName,
			BaseCurrencyCode: "CLP",
			RindegastosToken: os.Getenv("RINDEGASTOS_TOKEN"),
			IsActive:         &active,
		}
		if err := db.WithContext(ctx).Create(&biz).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create business: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created business %s (%s)\n", biz.Name, biz.ID)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup business: %v\n", err)
		os.Exit(1)
	} else if token := os.Getenv("RINDEGASTOS_TOKEN"); token != "" && token != biz.RindegastosToken {
		if err := db.WithContext(ctx).Model(&biz).Update("rindegastos_token", token).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("updated Rindegastos token")
	}

	var existing models.User
	err = db.WithContext(ctx).Where("username = ?", adminUsername).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		user := models.User{
			Username:   adminUsername,
			Name:       adminName,
			Role:       models.UserRoleAdmin,
			BusinessId: biz.ID.String(),
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin user %s\n", adminUsername)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(adminUsername, biz.ID.String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate session token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("session token: %s\n", token)
}
