package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/realtime"
	xhttp "RiskPulse/pkg/http"
	applogger "RiskPulse/pkg/logger"
)

// AlertsHandler lists stored alerts and streams new ones over a websocket.
type AlertsHandler struct {
	reader   domrepo.AlertReader
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	l        *applogger.Logger
}

func NewAlertsHandler(reader domrepo.AlertReader, hub *realtime.Hub, l *applogger.Logger) *AlertsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &AlertsHandler{
		reader: reader,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/alerts", h.List)
	if h.hub != nil {
		e.GET("/ws/alerts", h.Stream)
	}
}

func (h *AlertsHandler) List(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.reader.RecentAlerts(c.Request().Context(), req.Type, req.Limit)
	if err != nil {
		h.l.Error("alerts usecase error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
	}
	if rows == nil {
		rows = []models.Alert{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AlertsHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	h.hub.AddClient(conn)
	return nil
}
