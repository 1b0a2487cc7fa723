package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/host"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/ledger"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/units"
)

type receiptResponse struct {
	ID        string    `json:"receipt_id"`
	Kind      string    `json:"kind"`
	Caller    string    `json:"caller"`
	Amount    string    `json:"amount"`
	Credit    string    `json:"credit,omitempty"`
	Pooled    string    `json:"pooled"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) toResponse(r models.Receipt) receiptResponse {
	resp := receiptResponse{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Caller:    r.Caller.String(),
		Amount:    units.Format(r.Amount, s.decimals),
		Pooled:    units.Format(r.Pooled, s.decimals),
		CreatedAt: r.CreatedAt,
	}
	if r.Kind == models.CallDeposit {
		resp.Credit = units.Format(r.Credit, s.decimals)
	}
	return resp
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) balance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"balance": units.Format(s.pool.Balance(), s.decimals)})
}

func (s *Server) administrator(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"administrator": s.pool.Administrator()})
}

func (s *Server) credit(c *gin.Context) {
	id, ok := models.ParseIdentity(c.Param("identity"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"identity": id,
		"credit":   units.Format(s.pool.CreditOf(id), s.decimals),
	})
}

func (s *Server) receipts(c *gin.Context) {
	receipts, err := s.pool.Receipts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]receiptResponse, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, s.toResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deposit(c *gin.Context) {
	var req struct {
		Value decimal.Decimal `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindErr(c, err, "invalid request body")
		return
	}
	value, err := units.FromDecimal(req.Value, s.decimals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := s.pool.Deposit(c.Request.Context(), callerFrom(c), value)
	if err != nil {
		s.writeCallErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.toResponse(receipt))
}

func (s *Server) withdraw(c *gin.Context) {
	var req struct {
		Amount *decimal.Decimal `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindErr(c, err, "amount is required")
		return
	}
	amount, err := units.FromDecimal(*req.Amount, s.decimals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := s.pool.Withdraw(c.Request.Context(), callerFrom(c), amount)
	if err != nil {
		s.writeCallErr(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toResponse(receipt))
}

func (s *Server) writeBindErr(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (s *Server) writeCallErr(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, ledger.ErrInsufficientFunds):
		code = http.StatusConflict
	case errors.Is(err, ledger.ErrOverflow):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrTransferFailed):
		code = http.StatusBadGateway
	case errors.Is(err, host.ErrUnsettled):
		code = http.StatusServiceUnavailable
	default:
		s.logger.Error("call failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
