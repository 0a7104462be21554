package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
	"github.com/leadscan/telegram-lead-scanner/internal/scan/scanner"
)

type stubScans struct {
	startReq  *scanner.Request
	startErr  error
	statusRun domain.ScanRun
	statusErr error
	stopErr   error
	history   []domain.ScanRun
}

func (s *stubScans) Start(_ context.Context, req scanner.Request) (domain.ScanRun, error) {
	s.startReq = &req

	if s.startErr != nil {
		return domain.ScanRun{}, s.startErr
	}

	return domain.ScanRun{ID: "run-1", State: domain.ScanStateRunning, TotalMessages: len(req.Messages)}, nil
}

func (s *stubScans) Status(_ string) (domain.ScanRun, error) {
	return s.statusRun, s.statusErr
}

func (s *stubScans) Stop(_ string) error {
	return s.stopErr
}

func (s *stubScans) History() []domain.ScanRun {
	return s.history
}

type stubLeads struct {
	markedID  string
	contacted bool
	err       error
}

func (s *stubLeads) MarkContacted(_ context.Context, leadID string, contacted bool, _ time.Time) error {
	s.markedID = leadID
	s.contacted = contacted

	return s.err
}

type stubSource struct {
	messages []domain.RawMessage
	err      error
	chatIDs  []int64
}

func (s *stubSource) FetchMessages(_ context.Context, chatIDs []int64, _ time.Time) ([]domain.RawMessage, error) {
	s.chatIDs = chatIDs

	return s.messages, s.err
}

func newTestServer(scans *stubScans, leads *stubLeads, source *stubSource) *Server {
	l := zerolog.Nop()
	cfg := &config.Config{
		ScanChatIDs: []int64{100, 200},
		ScanWindow:  time.Hour,
	}

	return NewServer(cfg, scans, leads, source, &l)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	return rec
}

func TestStartScanWithInlineMessages(t *testing.T) {
	scans := &stubScans{}
	s := newTestServer(scans, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", map[string]interface{}{
		"messages": []map[string]interface{}{
			{"id": "100_1", "chatId": "100", "text": "hello", "timestamp": 1767225600000},
			{"id": "100_2", "chatId": "100", "text": "world", "timestamp": "2026-01-01T00:01:00Z"},
		},
		"criteria": map[string]interface{}{"minConfidence": 60},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	require.NotNil(t, scans.startReq)
	require.Len(t, scans.startReq.Messages, 2)
	assert.Equal(t, int64(1767225600000), scans.startReq.Messages[0].Timestamp)
	assert.Equal(t, int64(1767225660000), scans.startReq.Messages[1].Timestamp)
	assert.Equal(t, 60, scans.startReq.Criteria.MinConfidence)

	var run domain.ScanRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.ID)
}

func TestStartScanFetchesFromSource(t *testing.T) {
	scans := &stubScans{}
	source := &stubSource{messages: []domain.RawMessage{{ID: "100_1", Timestamp: 1}}}
	s := newTestServer(scans, &stubLeads{}, source)

	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", map[string]interface{}{})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{100, 200}, source.chatIDs)
	require.NotNil(t, scans.startReq)
	assert.Len(t, scans.startReq.Messages, 1)
}

func TestStartScanConflict(t *testing.T) {
	scans := &stubScans{startErr: apperrors.ErrScanInProgress}
	s := newTestServer(scans, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", map[string]interface{}{
		"messages": []map[string]interface{}{
			{"id": "1_1", "timestamp": 1},
		},
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartScanBrokenTemplate(t *testing.T) {
	scans := &stubScans{startErr: apperrors.ErrTemplateMissingPlaceholder}
	s := newTestServer(scans, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", map[string]interface{}{
		"messages": []map[string]interface{}{
			{"id": "1_1", "timestamp": 1},
		},
		"criteria": map[string]interface{}{"template": "broken"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartScanBadTimestamp(t *testing.T) {
	s := newTestServer(&stubScans{}, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", map[string]interface{}{
		"messages": []map[string]interface{}{
			{"id": "1_1", "timestamp": "not a date"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartScanSourceFailure(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("mtproto down")}
	s := newTestServer(&stubScans{}, &stubLeads{}, source)

	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", map[string]interface{}{})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestScanStatus(t *testing.T) {
	scans := &stubScans{statusRun: domain.ScanRun{ID: "run-9", State: domain.ScanStateCompleted, FoundLeads: 3}}
	s := newTestServer(scans, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodGet, "/api/scan/status/run-9", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var run domain.ScanRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, 3, run.FoundLeads)
}

func TestScanStatusNotFound(t *testing.T) {
	scans := &stubScans{statusErr: apperrors.ErrRunNotFound}
	s := newTestServer(scans, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodGet, "/api/scan/status/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopScan(t *testing.T) {
	s := newTestServer(&stubScans{}, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodPost, "/api/scan/stop/run-1", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestScanHistory(t *testing.T) {
	scans := &stubScans{history: []domain.ScanRun{{ID: "b"}, {ID: "a"}}}
	s := newTestServer(scans, &stubLeads{}, &stubSource{})

	rec := doRequest(t, s, http.MethodGet, "/api/scan/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var runs []domain.ScanRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
}

func TestMarkContacted(t *testing.T) {
	leads := &stubLeads{}
	s := newTestServer(&stubScans{}, leads, &stubSource{})

	rec := doRequest(t, s, http.MethodPatch, "/api/leads/lead_abc/contact", map[string]interface{}{
		"contacted": true,
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "lead_abc", leads.markedID)
	assert.True(t, leads.contacted)
}

func TestMarkContactedNotFound(t *testing.T) {
	leads := &stubLeads{err: apperrors.ErrLeadNotFound}
	s := newTestServer(&stubScans{}, leads, &stubSource{})

	rec := doRequest(t, s, http.MethodPatch, "/api/leads/nope/contact", map[string]interface{}{
		"contacted": true,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
