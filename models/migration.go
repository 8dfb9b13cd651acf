package models

import (
	"log"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &Employee{}, &Contact{}, &BankJournal{},
		&ExpenseReport{}, &Expense{}, &BankMovement{},
		&BankStatementLine{}, &AccountEntry{}, &AccountEntryLine{},
		&ImportSyncRun{}, &ImportSyncError{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
