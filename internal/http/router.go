package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostara/billing-service/internal/config"
	"github.com/hostara/billing-service/internal/service"
)

// RateLimiter is a simple in-memory sliding-window rate limiter
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether another request is permitted for key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// RateLimitMiddleware rejects requests over the limit, keyed by account
// ID when authenticated, client IP otherwise.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("accountID")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
}

// Per-account limit across the user API
var userRateLimiter = NewRateLimiter(30, time.Minute)

// Server creation is expensive on the panel side; a handful per hour
// covers retries and rebuilds.
var createRateLimiter = NewRateLimiter(5, time.Hour)

func NewServer(
	cfg *config.Config,
	accountService *service.AccountService,
	serverService *service.ServerService,
	billingService *service.BillingService,
) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	handler := NewHandler(accountService, serverService, billingService)

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "billing-service",
		})
	})

	// Internal API - called by the shop/portal backend
	internal := s.router.Group("/api/internal")
	internal.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		// Accounts
		internal.POST("/accounts", s.handler.CreateAccount)
		internal.GET("/accounts/:id", s.handler.GetAccount)
		internal.POST("/accounts/:id/credit", s.handler.CreditAccount)

		// Servers
		internal.POST("/servers", s.handler.CreateServer)
		internal.GET("/servers/:id", s.handler.GetServer)
		internal.DELETE("/servers/:id", s.handler.DeleteServer)
		internal.POST("/servers/:id/sync", s.handler.SyncServerStatus)
		internal.POST("/servers/:id/unsuspend", s.handler.UnsuspendServer)
		internal.GET("/servers/:id/logs", s.handler.GetServerLogs)

		// Billing
		internal.POST("/billing/sweep", s.handler.RunSweep)
	}

	// User API - requires JWT authentication
	user := s.router.Group("/api/v1")
	user.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	user.Use(RateLimitMiddleware(userRateLimiter))
	{
		user.GET("/my/balance", s.handler.GetMyBalance)
		user.GET("/my/servers", s.handler.GetMyServers)
		user.POST("/my/servers", RateLimitMiddleware(createRateLimiter), s.handler.CreateMyServer)
		user.DELETE("/my/servers/:id", s.handler.DeleteMyServer)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
