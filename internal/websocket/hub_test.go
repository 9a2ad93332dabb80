package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Hub, *token.Manager, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	tokens := token.NewManager("test-secret", time.Hour)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, tokens) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, tokens, srv
}

func wsURL(srv *httptest.Server, tok string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + tok
}

func TestServeWs_Broadcast(t *testing.T) {
	hub, tokens, srv := newServer(t)
	companyID := uuid.New()
	tok, _, err := tokens.Issue(uuid.New(), model.RoleStaff, &companyID)
	require.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial(wsURL(srv, tok), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastJSON(map[string]string{"type": "fiscal_rule.created"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"fiscal_rule.created"}`, string(msg))
}

func TestServeWs_RejectsBadTokens(t *testing.T) {
	_, _, srv := newServer(t)

	_, resp, err := gws.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gws.DefaultDialer.Dial(wsURL(srv, "garbage"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

type scopedEvent struct {
	Type      string     `json:"type"`
	CompanyID *uuid.UUID `json:"companyId"`
}

func (e scopedEvent) Audience() *uuid.UUID { return e.CompanyID }

func dial(t *testing.T, hub *Hub, srv *httptest.Server, tokens *token.Manager, role string, companyID *uuid.UUID) *gws.Conn {
	t.Helper()
	want := hub.ClientCount() + 1
	tok, _, err := tokens.Issue(uuid.New(), role, companyID)
	require.NoError(t, err)
	conn, _, err := gws.DefaultDialer.Dial(wsURL(srv, tok), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, time.Second, 10*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *gws.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestHub_CompanyEventsStayWithinTenant(t *testing.T) {
	hub, tokens, srv := newServer(t)
	acme, globex := uuid.New(), uuid.New()

	admin := dial(t, hub, srv, tokens, model.RoleAdmin, nil)
	acmeStaff := dial(t, hub, srv, tokens, model.RoleStaff, &acme)
	globexStaff := dial(t, hub, srv, tokens, model.RoleManager, &globex)

	hub.BroadcastJSON(scopedEvent{Type: "fiscal_rule.created", CompanyID: &acme})
	hub.BroadcastJSON(scopedEvent{Type: "fiscal_rule.deleted"})

	assert.Contains(t, read(t, admin), `"fiscal_rule.created"`)
	assert.Contains(t, read(t, admin), `"fiscal_rule.deleted"`)
	assert.Contains(t, read(t, acmeStaff), `"fiscal_rule.created"`)
	assert.Contains(t, read(t, acmeStaff), `"fiscal_rule.deleted"`)

	// Globex never sees Acme's rule; the platform event is its first message.
	assert.Contains(t, read(t, globexStaff), `"fiscal_rule.deleted"`)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, tokens, srv := newServer(t)
	companyID := uuid.New()
	conn := dial(t, hub, srv, tokens, model.RoleStaff, &companyID)

	hub.Stop()
	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_BroadcastJSONNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// Nothing drains the queue; the extra events must be dropped.
	for i := 0; i < 100; i++ {
		hub.BroadcastJSON(i)
	}
	assert.Equal(t, 64, hub.QueueLen())
}
