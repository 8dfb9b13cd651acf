package rindesync

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"github.com/gin-gonic/gin"
)

// ImportHandler is the manual trigger (the old wizard). It validates the
// dialog, queues a run scoped to the journal and window, and dispatches it.
// With inline=true the run executes in the request, useful without Pub/Sub.
func ImportHandler(store Store) gin.HandlerFunc {
	orchestrator := NewOrchestrator(store)
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		since, _ := time.Parse(time.DateOnly, req.Since)
		until, _ := time.Parse(time.DateOnly, req.Until)
		if until.Before(since) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until must not be before since"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)

		if _, err := store.GetBankJournal(ctx, businessId, req.JournalId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "journal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		run, err := orchestrator.QueueImport(ctx, businessId, req.JournalId, since, until, models.SyncTriggeredManual, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if req.Inline || !envBoolDefault("RINDESYNC_PUBSUB_DISPATCH", true) {
			if err := orchestrator.ProcessSyncRun(ctx, businessId, run.ID); err != nil {
				status := http.StatusBadGateway
				if IsConfigError(err) {
					status = http.StatusConflict
				}
				c.JSON(status, gin.H{"id": run.ID, "error": err.Error()})
				return
			}
		} else {
			_ = PublishSyncRun(ctx, run.ID, businessId)
		}

		c.JSON(http.StatusOK, gin.H{"id": run.ID})
	}
}

func SyncHistoryHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		runs, err := store.ListSyncRuns(ctx, businessId, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func SyncRunDetailHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		run, err := store.GetSyncRun(ctx, businessId, uint(id))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		errs, err := store.ListSyncErrors(ctx, businessId, run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(run),
			Errors:          mapErrors(errs),
		})
	}
}

func RetrySyncRunHandler(store Store) gin.HandlerFunc {
	orchestrator := NewOrchestrator(store)
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		newRun, err := orchestrator.RetrySyncRun(ctx, businessId, uint(id))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		_ = PublishSyncRun(ctx, newRun.ID, businessId)

		c.JSON(http.StatusOK, gin.H{"id": newRun.ID})
	}
}

// RefreshEmployeeHandler re-resolves an employee's Rindegastos user id from
// their work email.
func RefreshEmployeeHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		userId, err := RefreshEmployeeUserId(ctx, store, businessId, id)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrorRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			case IsConfigError(err):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case IsRemoteError(err):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"rindegastosUserId": userId})
	}
}

func resolveBusinessID(c *gin.Context) (string, error) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(username) == "" {
		return "", errors.New("unauthorized")
	}

	user, err := models.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		return "", err
	}

	businessId := strings.TrimSpace(c.Query("business_id"))
	if businessId != "" {
		if user.Role != models.UserRoleAdmin && user.BusinessId != businessId {
			return "", errors.New("unauthorized")
		}
		return businessId, nil
	}

	businessId = strings.TrimSpace(user.BusinessId)
	if businessId == "" {
		return "", errors.New("business_id is required")
	}
	return businessId, nil
}

func mapRunToResponse(run *models.ImportSyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:            run.ID,
		Status:        run.Status,
		TriggeredBy:   run.TriggeredBy,
		BankJournalId: run.BankJournalId,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationMs:    run.DurationMs,
		RecordsSynced: run.RecordsSynced,
		ErrorCount:    run.ErrorCount,
	}
}

func mapErrors(errorsList []*models.ImportSyncError) []SyncErrorResponse {
	items := make([]SyncErrorResponse, 0, len(errorsList))
	for _, e := range errorsList {
		items = append(items, SyncErrorResponse{
			ID:         e.ID,
			EntityType: e.EntityType,
			ExternalId: e.ExternalId,
			ErrorCode:  e.ErrorCode,
			Message:    e.Message,
			Retryable:  e.Retryable,
		})
	}
	return items
}
