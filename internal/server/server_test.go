package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/host"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/payout"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, decimals int32) (*httptest.Server, *payout.Wallets) {
	t.Helper()
	wallets := payout.NewWallets()
	h, err := host.Deploy(context.Background(), "D", memory.NewMemoryLedgerStore(), wallets, host.WithLogger(quiet))
	require.NoError(t, err)
	ts := httptest.NewServer(NewServer(h, decimals, quiet).Router())
	t.Cleanup(ts.Close)
	return ts, wallets
}

// call sends a JSON request as caller (omitted when empty) and decodes the response into out.
func call(t *testing.T, ts *httptest.Server, method, path, caller, body string, wantCode int, out any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantCode, resp.StatusCode, "body: %s", raw)
	if out != nil {
		require.NoError(t, json.NewDecoder(bytes.NewReader(raw)).Decode(out))
	}
}

func TestHTTPScenario(t *testing.T) {
	ts, wallets := newTestServer(t, 0)

	var admin map[string]string
	call(t, ts, http.MethodGet, "/administrator", "", "", http.StatusOK, &admin)
	assert.Equal(t, "D", admin["administrator"])

	var receipt receiptResponse
	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": 100}`, http.StatusCreated, &receipt)
	assert.Equal(t, "deposit", receipt.Kind)
	assert.Equal(t, "100", receipt.Credit)
	assert.Equal(t, "100", receipt.Pooled)
	assert.NotEmpty(t, receipt.ID)

	var bal map[string]string
	call(t, ts, http.MethodGet, "/balance", "", "", http.StatusOK, &bal)
	assert.Equal(t, "100", bal["balance"])

	var credit map[string]string
	call(t, ts, http.MethodGet, "/credits/A", "", "", http.StatusOK, &credit)
	assert.Equal(t, "100", credit["credit"])

	call(t, ts, http.MethodPost, "/withdraw", "B", `{"amount": 50}`, http.StatusForbidden, nil)
	call(t, ts, http.MethodPost, "/withdraw", "D", `{"amount": "150"}`, http.StatusConflict, nil)
	call(t, ts, http.MethodGet, "/balance", "", "", http.StatusOK, &bal)
	assert.Equal(t, "100", bal["balance"])

	var paid receiptResponse
	call(t, ts, http.MethodPost, "/withdraw", "D", `{"amount": 100}`, http.StatusOK, &paid)
	assert.Equal(t, "0", paid.Pooled)
	assert.Empty(t, paid.Credit)
	call(t, ts, http.MethodGet, "/balance", "", "", http.StatusOK, &bal)
	assert.Equal(t, "0", bal["balance"])
	call(t, ts, http.MethodGet, "/credits/A", "", "", http.StatusOK, &credit)
	assert.Equal(t, "100", credit["credit"])
	assert.Equal(t, uint64(100), wallets.BalanceOf("D"))

	var receipts []receiptResponse
	call(t, ts, http.MethodGet, "/receipts", "", "", http.StatusOK, &receipts)
	require.Len(t, receipts, 2)
	assert.Equal(t, "withdraw", receipts[1].Kind)
}

func TestHTTPDecimals(t *testing.T) {
	ts, _ := newTestServer(t, 2)

	var receipt receiptResponse
	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "1.25"}`, http.StatusCreated, &receipt)
	assert.Equal(t, "1.25", receipt.Amount)

	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "0.001"}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "-1"}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "1e30"}`, http.StatusBadRequest, nil)

	call(t, ts, http.MethodPost, "/deposit", "B", `{"value": "-0"}`, http.StatusCreated, &receipt)
	assert.Equal(t, "0", receipt.Amount)
	assert.Equal(t, "1.25", receipt.Pooled)
}

func TestHTTPRequiresCaller(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	call(t, ts, http.MethodPost, "/deposit", "", `{"value": 1}`, http.StatusUnauthorized, nil)
	call(t, ts, http.MethodPost, "/withdraw", "   ", `{"amount": 1}`, http.StatusUnauthorized, nil)
}

func TestHTTPBadBodies(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	call(t, ts, http.MethodPost, "/deposit", "A", `{bad json}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/withdraw", "D", `{}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "18446744073709551616"}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "1e200000000"}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/withdraw", "D", `{"amount": "1e200000000"}`, http.StatusBadRequest, nil)
	call(t, ts, http.MethodPost, "/withdraw", "D", `{"amount": "1e-200000000"}`, http.StatusBadRequest, nil)

	huge := `{"value": "` + strings.Repeat("9", 64<<10) + `"}`
	call(t, ts, http.MethodPost, "/deposit", "A", huge, http.StatusRequestEntityTooLarge, nil)

	var bal map[string]string
	call(t, ts, http.MethodGet, "/balance", "", "", http.StatusOK, &bal)
	assert.Equal(t, "0", bal["balance"])
}

func TestHTTPOverflow(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": "18446744073709551615"}`, http.StatusCreated, nil)
	call(t, ts, http.MethodPost, "/deposit", "B", `{"value": 1}`, http.StatusUnprocessableEntity, nil)
}

func TestHTTPTransferFailed(t *testing.T) {
	ts, wallets := newTestServer(t, 0)
	wallets.Reject("D")

	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": 10}`, http.StatusCreated, nil)
	call(t, ts, http.MethodPost, "/withdraw", "D", `{"amount": 10}`, http.StatusBadGateway, nil)

	var bal map[string]string
	call(t, ts, http.MethodGet, "/balance", "", "", http.StatusOK, &bal)
	assert.Equal(t, "10", bal["balance"])
}

type unsettledPool struct{ Pool }

func (unsettledPool) Deposit(context.Context, models.Identity, uint64) (models.Receipt, error) {
	return models.Receipt{}, fmt.Errorf("%w: connection reset", host.ErrUnsettled)
}

func TestHTTPUnsettled(t *testing.T) {
	h, err := host.Deploy(context.Background(), "D", memory.NewMemoryLedgerStore(), payout.NewWallets(), host.WithLogger(quiet))
	require.NoError(t, err)
	ts := httptest.NewServer(NewServer(unsettledPool{h}, 0, quiet).Router())
	t.Cleanup(ts.Close)

	call(t, ts, http.MethodPost, "/deposit", "A", `{"value": 1}`, http.StatusServiceUnavailable, nil)
}

func TestHTTPZeroDepositAndUnknownCredit(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	call(t, ts, http.MethodPost, "/deposit", "A", `{}`, http.StatusCreated, nil)

	var credit map[string]string
	call(t, ts, http.MethodGet, "/credits/nobody", "", "", http.StatusOK, &credit)
	assert.Equal(t, "0", credit["credit"])
	call(t, ts, http.MethodGet, "/health", "", "", http.StatusOK, nil)
	call(t, ts, http.MethodGet, "/deposit", "A", "", http.StatusNotFound, nil)
}
