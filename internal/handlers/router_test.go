package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/services"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := database.NewCSVStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	ledger := services.NewLedgerService(store, services.LedgerOptions{
		DefaultBalanceGovtOfficer: decimal.NewFromInt(100000000),
		DefaultBalanceBeneficiary: decimal.NewFromInt(1000000),
		Logger:                    logger,
	})
	require.NoError(t, ledger.Init(ctx))

	for _, req := range []services.NewAccount{
		{Name: "Asha", RankTitle: "District Collector", Password: "officer-pw"},
		{Name: "Ravi", RankTitle: "Farmer", Password: "farmer-pw"},
		{Name: "Meera", RankTitle: "Auditor", Password: "auditor-pw"},
	} {
		_, err := ledger.CreateAccount(ctx, req)
		require.NoError(t, err)
	}
	_, err = ledger.CreateProject(ctx, []string{"A00001", "A00002"}, "Irrigation canal")
	require.NoError(t, err)

	auth := services.NewAuthService(ledger, nil, "test-secret", time.Hour, logger)
	return NewRouter(ledger, auth, services.NewReceiptService(ledger), logger)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func login(t *testing.T, h http.Handler, accountNo, password string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{AccountNo: accountNo, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_Auth(t *testing.T) {
	h := newTestRouter(t)

	t.Run("login", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{AccountNo: "A00002", Password: "farmer-pw"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "A00002", resp.Account.AccountNo)
		assert.NotContains(t, w.Body.String(), "password_digest")
	})

	t.Run("wrong password", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{AccountNo: "A00002", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"account_no": "A00002"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "password")
	})

	t.Run("unknown fields", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"account_no": "A00002", "password": "x", "extra": "y"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("protected route without token", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/accounts/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("me", func(t *testing.T) {
		token := login(t, h, "A00002", "farmer-pw")
		w := do(t, h, http.MethodGet, "/api/v1/accounts/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "A00002", decodeBody(t, w)["account_no"])

		w = do(t, h, http.MethodGet, "/api/v1/accounts/me/projects", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "P00001")
	})

	t.Run("logout", func(t *testing.T) {
		token := login(t, h, "A00002", "farmer-pw")
		w := do(t, h, http.MethodPost, "/api/v1/auth/logout", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = do(t, h, http.MethodPost, "/api/v1/auth/logout", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRouter_Administration(t *testing.T) {
	h := newTestRouter(t)
	officer := login(t, h, "A00001", "officer-pw")
	farmer := login(t, h, "A00002", "farmer-pw")

	t.Run("beneficiary cannot create accounts", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/accounts", farmer, CreateAccountRequest{Name: "X", RankTitle: "Farmer", Password: "pw"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("officer creates account", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/accounts", officer, CreateAccountRequest{Name: "Kiran", Age: 29, RankTitle: "Teacher", Password: "pw"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, "A00004", body["account_no"])
		assert.Equal(t, "1000000", body["balance"])
	})

	t.Run("negative balance override", func(t *testing.T) {
		balance := decimal.NewFromInt(-10)
		w := do(t, h, http.MethodPost, "/api/v1/accounts", officer, CreateAccountRequest{Name: "Bad", RankTitle: "Teacher", Password: "pw", Balance: &balance})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("officer creates project", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/projects", officer, CreateProjectRequest{AccountNos: []string{"A00004"}, Description: "School roof"})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "P00002", decodeBody(t, w)["project_no"])

		w = do(t, h, http.MethodGet, "/api/v1/projects", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "School roof")
	})
}

func TestRouter_Transactions(t *testing.T) {
	h := newTestRouter(t)
	officer := login(t, h, "A00001", "officer-pw")
	farmer := login(t, h, "A00002", "farmer-pw")
	auditor := login(t, h, "A00003", "auditor-pw")

	transfer := func(token, to, project, amount, password string) *httptest.ResponseRecorder {
		return do(t, h, http.MethodPost, "/api/v1/transactions", token, TransactionRequest{
			ToAccountNo: to,
			ProjectNo:   project,
			Amount:      decimal.RequireFromString(amount),
			Password:    password,
		})
	}

	t.Run("successful transfer", func(t *testing.T) {
		w := transfer(officer, "A00002", "P00001", "500", "officer-pw")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, "T000001", body["transaction_no"])
		assert.Equal(t, "pending", body["verification_status"])
	})

	tests := []struct {
		name       string
		token      string
		to         string
		project    string
		amount     string
		password   string
		wantStatus int
	}{
		{"wrong password", officer, "A00002", "P00001", "1", "farmer-pw", http.StatusUnauthorized},
		{"zero amount", officer, "A00002", "P00001", "0", "officer-pw", http.StatusBadRequest},
		{"not authorized", auditor, "A00002", "P00001", "1", "auditor-pw", http.StatusForbidden},
		{"unknown receiver", officer, "A00999", "P00001", "1", "officer-pw", http.StatusNotFound},
		{"officer to auditor", officer, "A00003", "P00001", "1", "officer-pw", http.StatusUnprocessableEntity},
		{"insufficient funds", farmer, "A00001", "P00001", "99999999", "farmer-pw", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := transfer(tt.token, tt.to, tt.project, tt.amount, tt.password)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	t.Run("project ledger", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/projects/P00001/ledger", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var entries []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		assert.Len(t, entries, 1)
	})

	t.Run("receipt", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/transactions/T000001/receipt", farmer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.NotEmpty(t, body["qrImage"])
		assert.NotEmpty(t, body["receipt"])

		w = do(t, h, http.MethodGet, "/api/v1/transactions/T000404/receipt", farmer, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("only auditors verify", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/transactions/T000001/verify", officer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("verify", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/transactions/T000001/verify", auditor, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["verified"])

		w = do(t, h, http.MethodPost, "/api/v1/transactions/T000001/verify", auditor, nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(t, h, http.MethodPost, "/api/v1/transactions/T000404/verify", auditor, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("chain integrity", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/chain/integrity", auditor, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["length"])
		assert.NotContains(t, body, "first_broken")
	})
}
