package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/auth"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/database"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/services"
)

func newTestServer(t *testing.T, name string) *httptest.Server {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	eventService := services.NewEventService(db)
	authService := services.NewAuthService(db, eventService, 30*24*time.Hour)
	portfolioService := services.NewPortfolioService(db, eventService)

	ts := httptest.NewServer(NewRouter(authService, portfolioService, eventService, []string{"*"}))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(auth.TokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func register(t *testing.T, baseURL, email, password, name string) string {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth?action=register", "",
		map[string]string{"email": email, "password": password, "name": name})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginVerifyFlow(t *testing.T) {
	ts := newTestServer(t, "api_auth_flow")

	token := register(t, ts.URL, "a@x.com", "secret1", "A")

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth?action=verify", token, nil)
	require.Equal(t, http.StatusOK, status)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "a@x.com", user["email"])
	require.Equal(t, "A", user["name"])

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=login", "",
		map[string]string{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["token"])
	require.NotEqual(t, token, body["token"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t, "api_register_dup")

	register(t, ts.URL, "a@x.com", "secret1", "A")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=register", "",
		map[string]string{"email": "A@X.com", "password": "secret2", "name": "B"})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, body["error"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t, "api_login_bad")

	register(t, ts.URL, "a@x.com", "secret1", "A")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=login", "",
		map[string]string{"email": "a@x.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "invalid email or password", body["error"])
}

func TestUnknownAuthAction(t *testing.T) {
	ts := newTestServer(t, "api_unknown_action")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=destroy", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid request", body["error"])

	// A known action on the wrong method is equally invalid.
	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth?action=register", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestPortfolioRequiresToken(t *testing.T) {
	ts := newTestServer(t, "api_portfolio_auth")

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolio", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotEmpty(t, body["error"])

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolio", "bogus-token", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestPortfolioEndToEnd(t *testing.T) {
	ts := newTestServer(t, "api_portfolio_e2e")

	token := register(t, ts.URL, "a@x.com", "secret1", "A")

	// Fresh account: empty snapshot with zeroed totals.
	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolio", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, body["totalValue"])
	require.Zero(t, body["dailyChange"])
	require.Zero(t, body["dailyChangePercent"])
	require.Empty(t, body["positions"])
	require.Empty(t, body["dividends"])

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/portfolio", token, map[string]any{
		"ticker": "AAPL", "name": "Apple", "shares": 10.0,
		"avgPrice": 150.0, "currentPrice": 170.0, "type": "stock",
	})
	require.Equal(t, http.StatusOK, status)

	paidOn := time.Now().UTC().AddDate(0, 0, -5).Format(database.DateLayout)
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/portfolio/dividends", token, map[string]any{
		"ticker": "AAPL", "amount": 5.5, "date": paidOn, "type": "regular",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolio", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 1700.0, body["totalValue"].(float64), 1e-9)
	require.InDelta(t, 5.5, body["monthlyDividends"].(float64), 1e-9)
	require.InDelta(t, 66.0, body["yearlyDividends"].(float64), 1e-9)

	positions, ok := body["positions"].([]any)
	require.True(t, ok)
	require.Len(t, positions, 1)
	first := positions[0].(map[string]any)
	require.Equal(t, "AAPL", first["ticker"])
	require.InDelta(t, 10.0, first["shares"].(float64), 1e-9)

	// Dividend dates are serialized as plain YYYY-MM-DD.
	dividends, ok := body["dividends"].([]any)
	require.True(t, ok)
	require.Len(t, dividends, 1)
	require.Equal(t, paidOn, dividends[0].(map[string]any)["date"])

	// Events were recorded along the way.
	recorded := getEvents(t, ts.URL, token)
	require.NotEmpty(t, recorded)
}

func getEvents(t *testing.T, baseURL, token string) []any {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/events", nil)
	require.NoError(t, err)
	req.Header.Set(auth.TokenHeader, token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	return events
}

func TestEventsEndpointReturnsUserEvents(t *testing.T) {
	ts := newTestServer(t, "api_events")

	token := register(t, ts.URL, "a@x.com", "secret1", "A")

	recorded := getEvents(t, ts.URL, token)
	require.Len(t, recorded, 1)
	event := recorded[0].(map[string]any)
	require.Equal(t, "user.register", event["type"])
}

func TestDividendDateValidation(t *testing.T) {
	ts := newTestServer(t, "api_dividend_date")

	token := register(t, ts.URL, "a@x.com", "secret1", "A")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/portfolio/dividends", token, map[string]any{
		"ticker": "AAPL", "amount": 5.5, "date": "05/12/2025", "type": "regular",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "date must be YYYY-MM-DD", body["error"])
}

func TestLogoutIsIdempotentOverHTTP(t *testing.T) {
	ts := newTestServer(t, "api_logout")

	token := register(t, ts.URL, "a@x.com", "secret1", "A")

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	// The token no longer grants access.
	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/portfolio", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Logging out again, or with an unknown token, still succeeds.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth?action=logout", "never-issued", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestPreflightAllowsAnyOrigin(t *testing.T) {
	ts := newTestServer(t, "api_preflight")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/portfolio", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", auth.TokenHeader)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "api_health")

	status, body := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}
