package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/logging"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
	"github.com/fyrsmithlabs/genogram/internal/reflection"
	"github.com/fyrsmithlabs/genogram/internal/telemetry"
)

// secretsSnapshot triggers only the secrets cluster rule, scoring 85.
func secretsSnapshot() genogram.Snapshot {
	return genogram.Snapshot{
		RootMemberID: "me",
		Members: []genogram.Member{
			{ID: "me", Name: "Alex", Sex: genogram.SexFemale, IsAlive: true, IsPresent: true},
			{ID: "gm", Name: "Rosa", Sex: genogram.SexFemale},
		},
		Events: []genogram.Event{
			{ID: "s1", Kind: genogram.EventSecret, MemberID: "gm", Lineage: genogram.LineageMaternal, Severity: 5, IsSecret: true},
			{ID: "s2", Kind: genogram.EventChildLoss, MemberID: "gm", Lineage: genogram.LineageMaternal, Severity: 4, IsSecret: true},
			{ID: "s3", Kind: genogram.EventAbortion, Lineage: genogram.LineagePaternal, Severity: 3},
		},
	}
}

type failingAnalyzer struct {
	err error
}

func (f failingAnalyzer) Analyze(context.Context, *genogram.Snapshot, int) (*patterns.Analysis, error) {
	return nil, f.err
}

func (failingAnalyzer) Rules() []patterns.RuleInfo { return nil }

func setupTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	server, err := NewServer(patterns.NewEngine(), logging.NewNop(), &Config{
		Host:     "localhost",
		Port:     9191,
		Version:  "test",
		MaxDepth: patterns.DefaultMaxDepth,
	}, opts...)
	require.NoError(t, err)
	return server
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 9191}

		server, err := NewServer(patterns.NewEngine(), logging.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server.echo)
		assert.Equal(t, cfg, server.config)
		assert.Nil(t, server.limiter)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(patterns.NewEngine(), logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9191, server.config.Port)
		assert.Equal(t, patterns.DefaultMaxDepth, server.config.MaxDepth)
		assert.NotNil(t, server.limiter)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(patterns.NewEngine(), nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when analyzer is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "analyzer cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("without telemetry", func(t *testing.T) {
		server := setupTestServer(t)

		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.Equal(t, 6, resp.Rules)
		assert.Nil(t, resp.Telemetry)
	})

	t.Run("reports telemetry health", func(t *testing.T) {
		tel := telemetry.NewTestTelemetry()
		server := setupTestServer(t, WithTelemetry(tel.Telemetry))

		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		require.NotNil(t, resp.Telemetry)
		assert.True(t, resp.Telemetry.Healthy)
		assert.False(t, resp.Telemetry.Degraded)
	})
}

func TestHandleRules(t *testing.T) {
	server := setupTestServer(t)

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rules, 6)
	assert.Equal(t, patterns.RulePaternalAbsence, resp.Rules[0].ID)
	assert.Equal(t, 10, resp.Rules[0].Priority)
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("detects patterns", func(t *testing.T) {
		server := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{Snapshot: secretsSnapshot()})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var analysis patterns.Analysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
		assert.NotEmpty(t, analysis.ID)
		assert.Equal(t, "me", analysis.RootMemberID)
		require.Len(t, analysis.Patterns, 1)
		assert.Equal(t, patterns.RuleSecrets, analysis.Patterns[0].RuleID)
		assert.Equal(t, 85, analysis.Patterns[0].Score)
		assert.Len(t, analysis.HighPriority, 1)
		assert.Equal(t, 3, analysis.Stats.Events)
	})

	t.Run("empty snapshot yields no patterns", func(t *testing.T) {
		server := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{})
		require.Equal(t, http.StatusOK, rec.Code)

		var analysis patterns.Analysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
		assert.Empty(t, analysis.Patterns)
		assert.NotNil(t, analysis.Patterns)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		server := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{not json"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid snapshot with details", func(t *testing.T) {
		server := setupTestServer(t)

		snap := secretsSnapshot()
		snap.Members[1].Sex = "unknown"
		snap.Events[0].Severity = 9

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{Snapshot: snap})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "invalid snapshot", resp.Error)
		require.Len(t, resp.Details, 2)
		assert.Contains(t, resp.Details[0], "unknown sex")
		assert.Contains(t, resp.Details[1], "severity 9")
	})

	t.Run("maps analyzer failures", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			code int
		}{
			{"canceled", context.Canceled, http.StatusServiceUnavailable},
			{"invariant", patterns.ErrInvariant, http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server, err := NewServer(failingAnalyzer{err: tt.err}, logging.NewNop(), &Config{})
				require.NoError(t, err)

				rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{})
				assert.Equal(t, tt.code, rec.Code)
			})
		}
	})
}

func TestHandleReport(t *testing.T) {
	t.Run("json report", func(t *testing.T) {
		server := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/report", ReportRequest{Snapshot: secretsSnapshot()})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report reflection.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.NotEmpty(t, report.ID)
		assert.NotEmpty(t, report.AnalysisID)
		require.Len(t, report.Patterns, 1)
		assert.Equal(t, 1, report.Statistics.HighPriority)
		assert.NotEmpty(t, report.Insights)
	})

	t.Run("insights can be disabled", func(t *testing.T) {
		server := setupTestServer(t)
		off := false

		rec := postJSON(t, server, "/api/v1/report", ReportRequest{
			Snapshot:        secretsSnapshot(),
			IncludeInsights: &off,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var report reflection.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Empty(t, report.Insights)
	})

	t.Run("markdown report", func(t *testing.T) {
		server := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/report", ReportRequest{Snapshot: secretsSnapshot(), Format: "markdown"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RenderedReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "markdown", resp.Format)
		assert.NotEmpty(t, resp.ReportID)
		assert.Contains(t, resp.Content, "Cluster of secrets")
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		server := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/report", ReportRequest{Snapshot: secretsSnapshot(), Format: "pdf"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid snapshot", func(t *testing.T) {
		server := setupTestServer(t)

		snap := secretsSnapshot()
		snap.RootMemberID = "nobody"

		rec := postJSON(t, server, "/api/v1/report", ReportRequest{Snapshot: snap})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Details, 1)
		assert.Contains(t, resp.Details[0], `root member "nobody" not found`)
	})
}

func TestRateLimit(t *testing.T) {
	server, err := NewServer(patterns.NewEngine(), logging.NewNop(), &Config{
		RateLimit: 0.001,
		RateBurst: 1,
	})
	require.NoError(t, err)

	first := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{})
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Read-only endpoints are not limited.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestServerLifecycle(t *testing.T) {
	server, err := NewServer(patterns.NewEngine(), logging.NewNop(), &Config{
		Host: "localhost",
		Port: 0, // random available port
	})
	require.NoError(t, err)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errChan:
		assert.True(t, err == nil || errors.Is(err, http.ErrServerClosed))
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("adds request ID to response", func(t *testing.T) {
		server := setupTestServer(t)

		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("logs requests with request id", func(t *testing.T) {
		logger := logging.NewTestLogger()
		server, err := NewServer(patterns.NewEngine(), logger.Logger, &Config{})
		require.NoError(t, err)

		rec := postJSON(t, server, "/api/v1/report", ReportRequest{Format: "pdf"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		logger.AssertLogged(t, zapcore.InfoLevel, "http request")
		logger.AssertField(t, "http request", "status", int64(http.StatusBadRequest))
		logger.AssertField(t, "http request", "request.id", rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("recovers from panic", func(t *testing.T) {
		server := setupTestServer(t)
		server.echo.GET("/panic", func(c echo.Context) error {
			panic("test panic")
		})

		rec := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("serves prometheus metrics", func(t *testing.T) {
		server := setupTestServer(t)

		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestValidationDetails(t *testing.T) {
	snap := genogram.Snapshot{
		Members: []genogram.Member{{ID: ""}, {ID: "a", Sex: genogram.SexMale}},
	}
	err := snap.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"members[0]: id is required"}, validationDetails(err))

	assert.Equal(t, []string{"plain"}, validationDetails(errors.New("plain")))
}
