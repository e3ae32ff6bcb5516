package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/commands/bus"
	commandhandlers "github.com/CivicGraph/demo-server/application/commands/handlers"
	querybus "github.com/CivicGraph/demo-server/application/queries/bus"
	queryhandlers "github.com/CivicGraph/demo-server/application/queries/handlers"
	"github.com/CivicGraph/demo-server/application/services"
	"github.com/CivicGraph/demo-server/infrastructure/observability"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/memory"
	"github.com/CivicGraph/demo-server/pkg/auth"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

const testSecret = "test-secret"

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testServer struct {
	handler http.Handler
	store   *memory.GraphStore
}

func newTestServer(t *testing.T, validator *auth.JWTValidator) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewSolarSystemStore()
	registry := memory.NewSessionRegistry()
	collector := observability.NewCollector("lineage_test")

	collections := services.NewCollectionManager(store, logger)
	source := services.DefaultCanonicalSource()
	initializer := services.NewSessionInitializer(store, registry, collections, source, nil, collector, logger)
	projection := services.NewProjectionService(store, collections, initializer, source, logger)
	mutations := services.NewMutationService(store, collections, nil, logger)
	removal := services.NewRemovalService(store, collections, 0, nil, collector, logger)
	history := services.NewHistoryService(store, logger)

	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))
	require.NoError(t, commandhandlers.Register(commandBus, initializer, mutations, removal))
	queryBus := querybus.NewQueryBus(querybus.LoggingMiddleware(logger))
	require.NoError(t, queryhandlers.Register(queryBus, projection, mutations, history))

	router := NewRouter(
		commandBus,
		queryBus,
		apperrors.NewErrorHandler(logger, false),
		validator,
		collector,
		map[string]Pinger{"store": store, "registry": registry},
		Options{EnableCORS: true, MetricsRoute: collector.Handler()},
		logger,
	)
	return &testServer{handler: router.Setup(), store: store}
}

func (s *testServer) call(t *testing.T, method, target, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set("x-session-id", session)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

type showResponse struct {
	Groups []struct {
		Type  string                   `json:"type"`
		Nodes []map[string]interface{} `json:"nodes"`
	} `json:"groups"`
}

func TestMissingSessionIsRejectedBeforeTheStore(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/show", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeMissingSession, decodeError(t, rec).Code)
	exists, err := srv.store.CollectionExists(context.Background(), "demo_abc_vertex")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInvalidSessionToken(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/show", "not a/session", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidSession, decodeError(t, rec).Code)
}

func TestUnknownOperation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodGet, "/api/explode", "abc", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeUnknownOperation, resp.Code)
	assert.Equal(t, "explode", resp.Details["op"])
}

func TestSessionIsCheckedBeforeOperation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodGet, "/api/explode", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeMissingSession, decodeError(t, rec).Code)
}

func TestShowSeedsAndProjects(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/show", "abc", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp showResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "vertex", resp.Groups[0].Type)
	assert.Len(t, resp.Groups[0].Nodes, 9)
	assert.Equal(t, "edge", resp.Groups[1].Type)
	assert.Len(t, resp.Groups[1].Nodes, 8)

	for _, node := range resp.Groups[0].Nodes {
		assert.Contains(t, node["id"], "demo_abc_vertex/")
		assert.NotContains(t, node, "_rev")
	}
	for _, edge := range resp.Groups[1].Nodes {
		assert.Contains(t, edge, "source")
		assert.Contains(t, edge, "target")
		assert.NotContains(t, edge, "_from")
	}
}

func TestSessionHeaderIsNormalized(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/init", "a-b-c", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exists, err := srv.store.CollectionExists(context.Background(), "demo_a_b_c_vertex")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCommandsAnswerTrue(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/init", "abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "true", rec.Body.String())

	rec = srv.call(t, http.MethodPost, "/api/show", "abc", "")
	var shown showResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shown))
	parent := shown.Groups[0].Nodes[0]["id"].(string)

	rec = srv.call(t, http.MethodPost, "/api/add?parentID="+parent, "abc", `[{"_key":"voyager","Body":"Voyager"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, "true", rec.Body.String())

	rec = srv.call(t, http.MethodPost, "/api/show", "abc", `["demo_abc_vertex/voyager"]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shown))
	require.Len(t, shown.Groups[0].Nodes, 1)
	assert.Equal(t, "Voyager", shown.Groups[0].Nodes[0]["Body"])

	rec = srv.call(t, http.MethodPut, "/api/edit", "abc", `{"_key":"voyager","Body":"Voyager 2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.call(t, http.MethodDelete, "/api/remove?nid=demo_abc_vertex/voyager", "abc", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, "true", rec.Body.String())

	rec = srv.call(t, http.MethodPost, "/api/show", "abc", `["demo_abc_vertex/voyager"]`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shown))
	assert.Empty(t, shown.Groups[0].Nodes)
}

func TestListChildren(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodGet, "/api/list?_rawId=evstore_test_planets/earth", "abc", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var children []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &children))
	require.Len(t, children, 1)
	assert.Equal(t, "Moon", children[0]["Body"])
	assert.Equal(t, "evstore_test_moons/moon", children[0]["_rawId"])
}

func TestVersionsRequireTimestamps(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/versions?nid=demo_abc_vertex/k1", "abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodPost, "/api/show", "abc", `{"not":"an array"`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.ErrorTypeValidation), decodeError(t, rec).Type)
}

func TestForeignNodeIsRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodDelete, "/api/remove?nid=demo_xyz_vertex/k1", "abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeForeignSession, decodeError(t, rec).Code)
}

func TestLogTimeline(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, "/api/init", "abc", "").Code)

	rec := srv.call(t, http.MethodGet, "/api/log", "abc", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var timeline struct {
		Groups []map[string]interface{} `json:"groups"`
		Items  []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	assert.NotEmpty(t, timeline.Groups)
	assert.Len(t, timeline.Items, 9)
	assert.Equal(t, "created", timeline.Items[0]["className"])
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.call(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.call(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"ok"`)
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	logger := zap.NewNop()
	router := NewRouter(bus.NewCommandBus(), querybus.NewQueryBus(), apperrors.NewErrorHandler(logger, false),
		nil, nil, map[string]Pinger{"store": failingPinger{}}, Options{}, logger)

	rec := httptest.NewRecorder()
	router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.call(t, http.MethodGet, "/health", "", "")

	rec := srv.call(t, http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lineage_test_http_requests_total")
}

func TestCORSAllowsSessionHeader(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/show", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-session-id")
	rec := httptest.NewRecorder()

	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-session-id")
}

func signToken(t *testing.T, session string) string {
	t.Helper()
	claims := auth.Claims{
		Session: session,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "lineage-demo",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestAuthentication(t *testing.T) {
	validator, err := auth.NewJWTValidator(testSecret, "lineage-demo")
	require.NoError(t, err)
	srv := newTestServer(t, validator)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing token", token: "", status: http.StatusUnauthorized},
		{name: "garbage token", token: "Bearer nope", status: http.StatusUnauthorized},
		{name: "token for another session", token: "Bearer " + signToken(t, "xyz"), status: http.StatusUnauthorized},
		{name: "token for this session", token: "Bearer " + signToken(t, "abc"), status: http.StatusOK},
		{name: "unscoped token", token: "Bearer " + signToken(t, ""), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/init", nil)
			req.Header.Set("x-session-id", "abc")
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			rec := httptest.NewRecorder()

			srv.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := srv.call(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "probes stay public")
}
