package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostara/billing-service/internal/models"
	"github.com/hostara/billing-service/internal/repository"
	"github.com/hostara/billing-service/internal/service"
)

type Handler struct {
	accountService *service.AccountService
	serverService  *service.ServerService
	billingService *service.BillingService
}

func NewHandler(
	accountService *service.AccountService,
	serverService *service.ServerService,
	billingService *service.BillingService,
) *Handler {
	return &Handler{
		accountService: accountService,
		serverService:  serverService,
		billingService: billingService,
	}
}

// ==================== Account Handlers ====================

// CreateAccount registers a new billable account
func (h *Handler) CreateAccount(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.accountService.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, models.CreateAccountResponse{
		AccountID: acc.ID,
		Credits:   acc.Credits.StringFixed(2),
	})
}

// GetAccount returns an account's balance
func (h *Handler) GetAccount(c *gin.Context) {
	acc, err := h.accountService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		AccountID: acc.ID,
		Credits:   acc.Credits.StringFixed(2),
	})
}

// CreditAccount tops up an account balance
func (h *Handler) CreditAccount(c *gin.Context) {
	var req models.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.accountService.Credit(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		AccountID: acc.ID,
		Credits:   acc.Credits.StringFixed(2),
	})
}

// ==================== Server Handlers ====================

// CreateServer provisions a server for an account
func (h *Handler) CreateServer(c *gin.Context) {
	var req models.CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	srv, err := h.serverService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		if errors.Is(err, repository.ErrDuplicatePanelServer) {
			c.JSON(http.StatusConflict, gin.H{"error": "panel server already registered"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, serverToResponse(srv))
}

// GetServer returns one server record with derived prices
func (h *Handler) GetServer(c *gin.Context) {
	srv, err := h.serverService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, serverToResponse(srv))
}

// DeleteServer tears down the panel server and removes the local record
func (h *Handler) DeleteServer(c *gin.Context) {
	err := h.serverService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		// Panel refused or errored: both sides were left intact.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// SyncServerStatus refreshes the mirrored status from the panel
func (h *Handler) SyncServerStatus(c *gin.Context) {
	srv, err := h.serverService.SyncStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, serverToResponse(srv))
}

// UnsuspendServer lifts a suspension
func (h *Handler) UnsuspendServer(c *gin.Context) {
	srv, err := h.serverService.Unsuspend(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, serverToResponse(srv))
}

// GetServerLogs returns recent billing log entries for a server
func (h *Handler) GetServerLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.serverService.Logs(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries := make([]models.BillingLogEntry, 0, len(logs))
	for _, l := range logs {
		entry := models.BillingLogEntry{
			ID:        l.ID,
			ServerID:  l.ServerID,
			AccountID: l.AccountID,
			Event:     l.Event,
			Message:   l.Message,
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		}
		if l.Amount != nil {
			entry.Amount = l.Amount.StringFixed(2)
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// ==================== Billing Handlers ====================

// RunSweep triggers one billing tick over all billable servers
func (h *Handler) RunSweep(c *gin.Context) {
	result, err := h.billingService.RunSweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.SweepResponse{
		Processed: result.Processed,
		Charged:   result.Charged,
		Suspended: result.Suspended,
		Failed:    result.Failed,
		Message:   "sweep complete",
	})
}

// ==================== User API Handlers ====================

// GetMyBalance returns the authenticated account's credits
func (h *Handler) GetMyBalance(c *gin.Context) {
	accountID, exists := c.Get("accountID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	acc, err := h.accountService.Get(c.Request.Context(), accountID.(string))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		AccountID: acc.ID,
		Credits:   acc.Credits.StringFixed(2),
	})
}

// GetMyServers lists the authenticated account's servers
func (h *Handler) GetMyServers(c *gin.Context) {
	accountID, exists := c.Get("accountID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	servers, err := h.serverService.ListByAccount(c.Request.Context(), accountID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]*models.ServerResponse, 0, len(servers))
	for _, srv := range servers {
		responses = append(responses, serverToResponse(srv))
	}

	c.JSON(http.StatusOK, gin.H{"servers": responses})
}

// CreateMyServer provisions a server for the authenticated account
func (h *Handler) CreateMyServer(c *gin.Context) {
	accountID, exists := c.Get("accountID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	var req models.CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// The authenticated account always owns its own servers.
	req.AccountID = accountID.(string)
	req.PriceMonthly = "" // users get tier pricing only

	srv, err := h.serverService.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, serverToResponse(srv))
}

// DeleteMyServer deletes a server owned by the authenticated account
func (h *Handler) DeleteMyServer(c *gin.Context) {
	accountID, exists := c.Get("accountID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	srv, err := h.serverService.Get(c.Request.Context(), c.Param("id"))
	if err != nil || srv.AccountID != accountID.(string) {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	if err := h.serverService.Delete(c.Request.Context(), srv.ID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ==================== Helpers ====================

func serverToResponse(srv *models.Server) *models.ServerResponse {
	return &models.ServerResponse{
		ServerID:      srv.ID,
		AccountID:     srv.AccountID,
		PanelServerID: srv.PanelServerID,
		Identifier:    srv.Identifier,
		Name:          srv.Name,
		Description:   srv.Description,
		Status:        srv.Status,
		Suspended:     srv.Suspended,
		MemoryMB:      srv.MemoryMB,
		CPU:           srv.CPU,
		SwapMB:        srv.SwapMB,
		DiskMB:        srv.DiskMB,
		IO:            srv.IO,
		Threads:       srv.Threads,
		Databases:     srv.Databases,
		Backups:       srv.Backups,
		Allocations:   srv.Allocations,
		NodeID:        srv.NodeID,
		AllocationID:  srv.AllocationID,
		NestID:        srv.NestID,
		EggID:         srv.EggID,
		PriceMonthly:  srv.Price.StringFixed(2),
		PricePerDay:   srv.PricePerDay().StringFixed(2),
		PricePerHour:  srv.PricePerHour().StringFixed(2),
		CreatedAt:     srv.CreatedAt.Format(time.RFC3339),
	}
}
