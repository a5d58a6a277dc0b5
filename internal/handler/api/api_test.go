package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/scheduler"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/services/sentiment"
	"RiskPulse/internal/usecase"
	xhttp "RiskPulse/pkg/http"
)

type stubMarket struct {
	now time.Time
}

func (s stubMarket) PriceHistory(_ context.Context, symbol string, _, _ time.Time) ([]models.PricePoint, error) {
	if symbol != "BTC" {
		return nil, nil
	}
	var out []models.PricePoint
	for i, c := range []float64{100, 105, 103, 108} {
		out = append(out, models.PricePoint{Symbol: symbol, Date: s.now.AddDate(0, 0, i-4), Close: decimal.NewFromFloat(c)})
	}
	return out, nil
}

func (stubMarket) LiquiditySamples(context.Context, string, time.Time, time.Time) ([]models.LiquiditySample, error) {
	return nil, nil
}

func (s stubMarket) TradeHistory(_ context.Context, user string, _, _ time.Time) ([]models.Position, error) {
	if user != "u1" {
		return nil, nil
	}
	var out []models.Position
	for i := 1; i <= 12; i++ {
		out = append(out, models.Position{
			UserID:            user,
			Symbol:            "BTC",
			Amount:            decimal.NewFromInt(1000),
			ProfitLossPercent: decimal.NewFromInt(-5),
			TradeDate:         s.now.AddDate(0, 0, -i),
		})
	}
	return out, nil
}

func (stubMarket) ActiveAssets(context.Context, time.Time, time.Time) ([]string, error) {
	return nil, nil
}

func (stubMarket) ActiveUsers(context.Context, time.Time, time.Time) ([]string, error) {
	return nil, nil
}

type stubTexts struct{}

func (stubTexts) TextItems(_ context.Context, symbol string, _, _ time.Time, _ int) ([]models.TextItem, error) {
	if symbol != "DOGE" {
		return nil, nil
	}
	return []models.TextItem{{ID: "1", Symbol: symbol, Source: "twitter", Text: "bearish dump incoming"}}, nil
}

func (stubTexts) ActiveTextSymbols(context.Context, time.Time, time.Time) ([]string, error) {
	return nil, nil
}

type stubAlerts struct {
	err error
}

func (s stubAlerts) RecentAlerts(_ context.Context, alertType string, limit int) ([]models.Alert, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Alert{{ID: "a1", Type: models.AlertType(alertType), SubjectID: "BTC", Level: models.LevelHigh}}, nil
}

func newEcho(t *testing.T, handlers ...xhttp.Handler) *echo.Echo {
	t.Helper()
	e := echo.New()
	xhttp.Handlers(handlers).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func riskHandler() *RiskHandler {
	assessor := usecase.NewRiskAssessor(stubMarket{now: time.Now().UTC()}, usecase.DefaultRiskConfig())
	return NewRiskHandler(usecase.NewRiskQuery(assessor, nil, 0, nil), nil)
}

func TestAssetRisk(t *testing.T) {
	e := newEcho(t, riskHandler())

	rec, body := do(e, http.MethodGet, "/api/risk/assets/btc", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "BTC", data["symbol"])
	assert.Equal(t, "very_high", data["risk_level"])

	rec, _ = do(e, http.MethodGet, "/api/risk/assets/ETH", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(e, http.MethodGet, "/api/risk/assets/BTC?days=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioRisk(t *testing.T) {
	e := newEcho(t, riskHandler())

	rec, body := do(e, http.MethodGet, "/api/risk/portfolios/u1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "u1", data["user_id"])
	assert.NotNil(t, data["stress_test"])
	corr := data["correlation_analysis"].(map[string]any)
	assert.Equal(t, "not_applicable", corr["status"])
	assert.Contains(t, data["recommendations"], "Consider reducing position sizes to lower overall portfolio risk")

	rec, body = do(e, http.MethodGet, "/api/risk/portfolios/u1?skip_stress=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := body["data"].(map[string]any)["stress_test"]
	assert.False(t, ok)

	rec, _ = do(e, http.MethodGet, "/api/risk/portfolios/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func sentimentHandler(rl *ratelimit.Limiter) *SentimentHandler {
	holder := sentiment.NewLexiconHolder(sentiment.DefaultLexicon())
	q := usecase.NewSentimentQuery(stubTexts{}, holder, sentiment.NewScorer(nil), nil)
	return NewSentimentHandler(q, rl, time.Hour, nil)
}

func TestScoreTextRateLimited(t *testing.T) {
	e := newEcho(t, sentimentHandler(ratelimit.New(1, 0.001)))

	rec, body := do(e, http.MethodPost, "/api/sentiment/score", `{"text":"HODL, to the moon!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "very_positive", data["label"])
	assert.Equal(t, "ok", data["status"])

	rec, _ = do(e, http.MethodPost, "/api/sentiment/score", `{"text":"again"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestScoreTextValidation(t *testing.T) {
	e := newEcho(t, sentimentHandler(nil))

	rec, _ := do(e, http.MethodPost, "/api/sentiment/score", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(e, http.MethodPost, "/api/sentiment/score", `{"text":"moon","matcher":"regex"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSymbolAndMarketSentiment(t *testing.T) {
	e := newEcho(t, sentimentHandler(nil))

	rec, body := do(e, http.MethodGet, "/api/sentiment/doge", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Extreme Fear", body["data"].(map[string]any)["fear_greed"])

	rec, _ = do(e, http.MethodGet, "/api/sentiment/XRP", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(e, http.MethodGet, "/api/sentiment/DOGE?from=2024-02-01&to=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(e, http.MethodGet, "/api/sentiment/market", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAlertsList(t *testing.T) {
	e := newEcho(t, NewAlertsHandler(stubAlerts{}, nil, nil))

	rec, body := do(e, http.MethodGet, "/api/alerts?type=asset_risk_spike&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 1, data["total"])

	rec, _ = do(e, http.MethodGet, "/api/alerts?type=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e = newEcho(t, NewAlertsHandler(stubAlerts{err: errors.New("ch down")}, nil, nil))
	rec, _ = do(e, http.MethodGet, "/api/alerts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	jobs := func() map[string]scheduler.Health {
		return map[string]scheduler.Health{"risk_cycle": {RunCount: 2}}
	}
	ok := HealthCheck{Name: "clickhouse", Check: func(context.Context) error { return nil }}
	bad := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}

	rec, body := do(newEcho(t, NewHealthHandler(jobs, ok)), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["data"].(map[string]any)["status"])

	rec, body = do(newEcho(t, NewHealthHandler(jobs, ok, bad)), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	comps := body["data"].(map[string]any)["components"].(map[string]any)
	assert.Equal(t, "refused", comps["redis"])
}
