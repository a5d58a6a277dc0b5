package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/usecase"
	xhttp "RiskPulse/pkg/http"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/util"
)

// RiskHandler serves on-demand asset and portfolio risk.
type RiskHandler struct {
	q *usecase.RiskQuery
	l *applogger.Logger
}

func NewRiskHandler(q *usecase.RiskQuery, l *applogger.Logger) *RiskHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &RiskHandler{q: q, l: l}
}

func (h *RiskHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/risk")
	g.GET("/assets/:symbol", h.Asset)
	g.GET("/portfolios/:user_id", h.Portfolio)
}

func (h *RiskHandler) Asset(c echo.Context) error {
	req := &models.AssetRiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)

	res, err := h.q.AssetRisk(c.Request().Context(), symbol, req.Days)
	if err != nil {
		return failResponse(c, h.l, "asset risk", symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, res)
}

func (h *RiskHandler) Portfolio(c echo.Context) error {
	req := &models.PortfolioRiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.q.PortfolioRisk(c.Request().Context(), req.UserID, req.Days, !req.SkipStress)
	if err != nil {
		return failResponse(c, h.l, "portfolio risk", req.UserID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// failResponse maps use case errors onto the API envelope.
func failResponse(c echo.Context, l *applogger.Logger, op, subject string, err error) error {
	if errors.Is(err, models.ErrUnknownSubject) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s", subject).WithError(err))
	}
	l.Error(op+" usecase error", applogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
}
