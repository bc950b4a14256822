package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/cricketbot/models"
	"github/itish2003/cricketbot/services"
)

type stubService struct {
	resp   *models.ChatResponse
	err    error
	chunks int
	got    models.ChatRequest
}

func (s *stubService) Chat(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	s.got = req
	return s.resp, s.err
}

func (s *stubService) GetTotalChunks(context.Context) (int, error) {
	return s.chunks, s.err
}

func newTestRouter(svc services.RAGService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewRAGController(svc))
}

func serve(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(newTestRouter(&stubService{}), http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response": "Alive and well my friend !"}`, w.Body.String())
}

func TestChat_Success(t *testing.T) {
	svc := &stubService{resp: &models.ChatResponse{Response: "Lord's is in London.", SessionID: "abc"}}
	w := serve(newTestRouter(svc), http.MethodPost, "/chat", `{"text": "Where is Lord's?", "session_id": "abc"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response": "Lord's is in London.", "session_id": "abc"}`, w.Body.String())
	assert.Equal(t, models.ChatRequest{Text: "Where is Lord's?", SessionID: "abc"}, svc.got)
}

func TestChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"text": `},
		{"missing text", `{"session_id": "abc"}`},
		{"blank text", `{"text": "   "}`},
		{"wrong type", `{"text": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			w := serve(newTestRouter(svc), http.MethodPost, "/chat", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, svc.got.Text)
		})
	}
}

func TestChat_ServiceFailure(t *testing.T) {
	svc := &stubService{err: errors.New("nvidia returned 503")}
	w := serve(newTestRouter(svc), http.MethodPost, "/chat", `{"text": "hi"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "Failed to generate response"}`, w.Body.String())
}

func TestStats(t *testing.T) {
	w := serve(newTestRouter(&stubService{chunks: 42}), http.MethodGet, "/api/v1/stats", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chunks": 42}`, w.Body.String())
}

func TestCORS_EchoesOrigin(t *testing.T) {
	w := serve(newTestRouter(&stubService{}), http.MethodGet, "/api/v1/health", "", map[string]string{"Origin": "http://localhost:3000"})

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_WildcardWithoutOrigin(t *testing.T) {
	w := serve(newTestRouter(&stubService{}), http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	w := serve(newTestRouter(&stubService{}), http.MethodOptions, "/chat", "", map[string]string{
		"Origin":                         "http://example.com",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Content-Type, X-Custom",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Custom", w.Header().Get("Access-Control-Allow-Headers"))
}
