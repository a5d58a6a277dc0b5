package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/usecase"
	xhttp "RiskPulse/pkg/http"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/util"
)

// SentimentHandler scores ad-hoc text and reports stored sentiment.
type SentimentHandler struct {
	q      *usecase.SentimentQuery
	rl     *ratelimit.Limiter
	window time.Duration
	l      *applogger.Logger
	now    func() time.Time
}

// NewSentimentHandler builds the handler. rl may be nil to disable rate limiting.
func NewSentimentHandler(q *usecase.SentimentQuery, rl *ratelimit.Limiter, window time.Duration, l *applogger.Logger) *SentimentHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &SentimentHandler{q: q, rl: rl, window: window, l: l, now: time.Now}
}

func (h *SentimentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/sentiment")
	g.POST("/score", h.Score)
	g.GET("/market", h.Market)
	g.GET("/:symbol", h.Symbol)
}

func (h *SentimentHandler) Score(c echo.Context) error {
	if h.rl != nil && !h.rl.Allow(c.RealIP()) {
		h.l.Warn("sentiment.score rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}
	req := &models.ScoreTextRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.ScoreText(req.Text, req.Engagement, req.Matcher)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("matcher", "%v", err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SentimentHandler) Symbol(c echo.Context) error {
	req := &models.SymbolSentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := xhttp.ParseWindow(req.From, req.To, h.window, h.now())
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)

	snap, err := h.q.SymbolSentiment(c.Request().Context(), symbol, from, to, req.Limit)
	if err != nil {
		return failResponse(c, h.l, "symbol sentiment", symbol, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *SentimentHandler) Market(c echo.Context) error {
	m := h.q.Market()
	if m == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("market sentiment not computed yet"))
	}
	return xhttp.SuccessResponse(c, m)
}
