package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func TestHubBroadcastsAlerts(t *testing.T) {
	hub := NewHub(nil)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(conn)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	alert := models.Alert{
		ID:          "a1",
		Type:        models.AlertMarketRiskSpike,
		SubjectID:   models.MarketSubject,
		Level:       models.LevelHigh,
		MetricValue: decimal.NewFromFloat(72.5),
	}
	require.NoError(t, hub.EmitAlert(context.Background(), alert))

	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	var got models.Alert
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, models.AlertMarketRiskSpike, got.Type)
	assert.True(t, got.MetricValue.Equal(decimal.NewFromFloat(72.5)))

	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}
