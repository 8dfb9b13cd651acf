package rindesync

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/models"
)

// journalFlow names which import pipeline a journal feeds.
type journalFlow string

const (
	flowMovements journalFlow = "movements"
	flowReports   journalFlow = "reports"
)

// resolveSubject determines the Rindegastos user whose records the journal
// imports, and with it the flow. A direct user id on the journal wins (the
// legacy movement feed); otherwise the linked employee's resolved user id
// selects the report feed. Neither configured is a ConfigError.
func resolveSubject(ctx context.Context, store Store, journal *models.BankJournal) (journalFlow, string, error) {
	if journal.RindegastosUserId != "" {
		return flowMovements, journal.RindegastosUserId, nil
	}
	if journal.EmployeeId != 0 {
		employee, err := store.GetEmployee(ctx, journal.BusinessId, journal.EmployeeId)
		if err != nil {
			return "", "", err
		}
		if employee.RindegastosUserId != "" {
			return flowReports, employee.RindegastosUserId, nil
		}
		return "", "", &ConfigError{
			Reason: fmt.Sprintf("employee %s on journal %s has no Rindegastos user id", employee.Name, journal.Name),
		}
	}
	return "", "", &ConfigError{
		Reason: fmt.Sprintf("journal %s has neither a Rindegastos user id nor a linked employee", journal.Name),
	}
}

// RefreshEmployeeUserId resolves an employee's Rindegastos user id from
// their work email via the remote getUser endpoint and stores it. An email
// unknown to Rindegastos clears the id. Lookups are cached for an hour.
func RefreshEmployeeUserId(ctx context.Context, store Store, businessId string, employeeId int) (string, error) {
	business, err := store.GetBusiness(ctx, businessId)
	if err != nil {
		return "", err
	}
	if business.RindegastosToken == "" {
		return "", &ConfigError{Reason: fmt.Sprintf("no Rindegastos token configured for company %s", business.Name)}
	}

	employee, err := store.GetEmployee(ctx, businessId, employeeId)
	if err != nil {
		return "", err
	}
	if employee.WorkEmail == "" {
		return "", &ConfigError{Reason: fmt.Sprintf("employee %s has no work email", employee.Name)}
	}

	cacheKey := "RgUser:" + businessId + ":" + employee.WorkEmail
	userId, found, err := config.GetRedisValue(cacheKey)
	if err != nil || !found {
		client := newRgClient(business.RindegastosToken)
		userId, err = client.getUserByEmail(ctx, employee.WorkEmail)
		if err != nil {
			return "", err
		}
		_ = config.SetRedisValue(cacheKey, userId, time.Hour)
	}

	if err := store.UpdateEmployeeUserId(ctx, businessId, employeeId, userId); err != nil {
		return "", err
	}
	return userId, nil
}
