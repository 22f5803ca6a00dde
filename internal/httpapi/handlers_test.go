package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotline-relay/internal/auth"
	"hotline-relay/internal/calllog"
	"hotline-relay/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminRouter(t *testing.T) (*gin.Engine, *calllog.Service, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	require.NoError(t, err)
	tok, err := m.IssueAccess(time.Now(), "ops", 0)
	require.NoError(t, err)

	svc := calllog.NewService(calllog.NewMemoryRepo())
	h := Handlers{CallLog: svc}

	r := gin.New()
	v1 := r.Group("/v1", auth.RequireAccessToken(m))
	v1.GET("/events", h.ListEvents)
	v1.GET("/summary", h.Summary)
	return r, svc, tok
}

func get(r http.Handler, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListEvents(t *testing.T) {
	r, svc, tok := newAdminRouter(t)
	ctx := context.Background()
	require.NoError(t, svc.LogCallStarted(ctx, "CA1", "+15551234567"))
	require.NoError(t, svc.LogRecording(ctx, calllog.EventRecordingSaved, "CA1", "RE1", "+15551234567", "10 bytes"))

	w := get(r, "/v1/events?limit=1", tok)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Events []calllog.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, calllog.EventRecordingSaved, body.Events[0].Type)
}

func TestListEventsBadLimit(t *testing.T) {
	r, _, tok := newAdminRouter(t)
	assert.Equal(t, http.StatusBadRequest, get(r, "/v1/events?limit=abc", tok).Code)
}

func TestSummary(t *testing.T) {
	r, svc, tok := newAdminRouter(t)
	require.NoError(t, svc.LogCallStarted(context.Background(), "CA1", ""))

	w := get(r, "/v1/summary", tok)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Summary  calllog.Summary `json:"summary"`
		Operator string          `json:"operator"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Summary.Calls)
	assert.Equal(t, "ops", body.Operator)
}

func TestAdminRequiresToken(t *testing.T) {
	r, _, _ := newAdminRouter(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/v1/summary", "").Code)
}
