// Package server exposes the prize pool over HTTP. It acts as the invocation
// context of the host: caller identity comes from the X-Caller-Identity
// header and attached value from the request body.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

const CallerHeader = "X-Caller-Identity"

// maxBodyBytes caps call bodies; a call carries a single amount.
const maxBodyBytes = 4 << 10

// Pool is the host surface the handlers call into.
type Pool interface {
	Deposit(ctx context.Context, caller models.Identity, value uint64) (models.Receipt, error)
	Withdraw(ctx context.Context, caller models.Identity, amount uint64) (models.Receipt, error)
	Balance() uint64
	CreditOf(id models.Identity) uint64
	Administrator() models.Identity
	Receipts(ctx context.Context) ([]models.Receipt, error)
}

type Server struct {
	pool     Pool
	decimals int32
	logger   *slog.Logger
}

// NewServer builds the HTTP layer; amounts on the wire are scaled by decimals.
func NewServer(pool Pool, decimals int32, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pool: pool, decimals: decimals, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/balance", s.balance)
	r.GET("/administrator", s.administrator)
	r.GET("/credits/:identity", s.credit)
	r.GET("/receipts", s.receipts)

	calls := r.Group("/", s.requireCaller(), limitBody(maxBodyBytes))
	calls.POST("/deposit", s.deposit)
	calls.POST("/withdraw", s.withdraw)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// requireCaller rejects calls without an identity and stores it for handlers.
func (s *Server) requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := models.ParseIdentity(c.GetHeader(CallerHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CallerHeader + " header is required"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

const callerKey = "caller"

func callerFrom(c *gin.Context) models.Identity {
	return c.MustGet(callerKey).(models.Identity)
}
