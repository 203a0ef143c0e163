package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediguard-triage-server/internal/domain"
	"github.com/mediguard-triage-server/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &domain.Config{
		Server: domain.ServerConfig{
			Host:              "127.0.0.1",
			Port:              0,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Engine: domain.EngineConfig{
			FillPolicy:       "midpoint",
			DeviationCeiling: 500,
			CriticalBoost:    3.0,
			EvidenceTopK:     5,
		},
		Logging: domain.LoggingConfig{Level: "error", Format: "json"},
	}

	engine, err := service.NewEngine(cfg.Engine, nil, logger)
	require.NoError(t, err)

	server := NewServer(cfg, engine, logger)
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_TriageSepsis(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/triage",
		`{"procalcitonin": 5.2, "lactate": 6.5, "wbc_count": 18.5, "hemoglobin": 8.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.TriageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Classification)
	assert.Equal(t, domain.CategorySepsis, result.Classification.Category)
	assert.Greater(t, result.Classification.Confidence, 0.8)
	assert.NotEmpty(t, result.Warnings)
}

func TestServer_TriageBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"Empty body", ""},
		{"Unrecognized encoding", "hello world"},
		{"Short CSV", "1,2,3"},
		{"Broken JSON", `{"hemoglobin": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/v1/triage", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_Catalog(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Biomarkers []domain.BiomarkerDefinition `json:"biomarkers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Biomarkers, 24)
}

func TestServer_Template(t *testing.T) {
	s := newTestServer(t)

	for _, format := range []string{"json", "key_value", "csv"} {
		t.Run(format, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, "/api/v1/template/"+format, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, format, body["format"])
			assert.NotEmpty(t, body["template"])
		})
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/template/xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodOptions, "/api/v1/triage", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
