package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Chriskfigures777/give-app-sub003/adapters/prom"
	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/query"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProcessor struct {
	result  core.DeliveryResult
	err     error
	last    core.Delivery
	lastErr error
}

func (s *stubProcessor) Process(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error) {
	s.last = delivery
	s.lastErr = ctx.Err()
	return s.result, s.err
}

type stubLookup struct{}

func (stubLookup) GetDonation(_ context.Context, paymentID string) (query.DonationView, error) {
	if paymentID != "pi_1" {
		return query.DonationView{}, core.NotFoundError("donation not found", map[string]any{"payment_id": paymentID})
	}
	return query.DonationView{Donation: core.Donation{ID: "don_1", ExternalPaymentID: "pi_1", AmountCents: 2500}}, nil
}

func TestWebhookPassesBodyAndSignature(t *testing.T) {
	processor := &stubProcessor{result: core.DeliveryResult{EventID: "evt_1", Outcome: core.OutcomeProcessed, StatusCode: http.StatusOK}}
	server := NewServer(Options{Processor: processor})

	req := httptest.NewRequest(http.MethodPost, DefaultWebhookPath, strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if string(processor.last.Body) != `{"id":"evt_1"}` || processor.last.Signature != "t=1,v1=abc" {
		t.Fatalf("unexpected delivery: %#v", processor.last)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["received"] != true || body["outcome"] != string(core.OutcomeProcessed) {
		t.Fatalf("unexpected response body: %#v", body)
	}
}

func TestWebhookOutlivesClientDisconnect(t *testing.T) {
	processor := &stubProcessor{result: core.DeliveryResult{EventID: "evt_1", Outcome: core.OutcomeProcessed, StatusCode: http.StatusOK}}
	server := NewServer(Options{Processor: processor})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, DefaultWebhookPath, strings.NewReader(`{"id":"evt_1"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if processor.last.Body == nil {
		t.Fatalf("expected the delivery to reach the processor")
	}
	if processor.lastErr != nil {
		t.Fatalf("expected processing context to ignore the disconnect, got %v", processor.lastErr)
	}
}

func TestWebhookStatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		result   core.DeliveryResult
		err      error
		wantCode int
		wantText string
	}{
		{
			name:     "bad signature",
			result:   core.DeliveryResult{Outcome: core.OutcomeRejected, StatusCode: http.StatusBadRequest},
			err:      core.AuthenticationError("signature verification failed", nil),
			wantCode: http.StatusBadRequest,
			wantText: core.ErrorAuthenticationFailed,
		},
		{
			name:     "persistence failure asks for redelivery",
			result:   core.DeliveryResult{Outcome: core.OutcomeFailed, StatusCode: http.StatusInternalServerError},
			err:      core.PersistenceError(context.DeadlineExceeded, "insert donation", nil),
			wantCode: http.StatusInternalServerError,
			wantText: core.ErrorPersistenceFailed,
		},
		{
			name:     "status falls back to error category",
			err:      core.PartnerCallError(context.Canceled, "create transfer", nil),
			wantCode: http.StatusInternalServerError,
			wantText: core.ErrorPartnerCallFailed,
		},
		{
			name:     "duplicate acknowledged",
			result:   core.DeliveryResult{Outcome: core.OutcomeDuplicate, StatusCode: http.StatusOK},
			wantCode: http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := NewServer(Options{Processor: &stubProcessor{result: tc.result, err: tc.err}})
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, DefaultWebhookPath, strings.NewReader(`{}`)))
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if tc.wantText != "" && !strings.Contains(rec.Body.String(), tc.wantText) {
				t.Fatalf("expected %s in body, got %s", tc.wantText, rec.Body.String())
			}
		})
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	processor := &stubProcessor{}
	server := NewServer(Options{Processor: processor, MaxBodyBytes: 8})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, DefaultWebhookPath, bytes.NewReader(make([]byte, 64))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if processor.last.Body != nil {
		t.Fatalf("expected processor not to run")
	}
}

func TestHealthMetricsAndDonationRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := prom.NewRecorder(registry)
	recorder.IncCounter(context.Background(), core.MetricEventsTotal, 1, map[string]string{"kind": "payout.paid", "outcome": "processed"})

	server := NewServer(Options{
		WebhookPath: "/hooks/stripe",
		Processor:   &stubProcessor{},
		Donations:   stubLookup{},
		Gatherer:    registry,
	})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), core.MetricEventsTotal) {
		t.Fatalf("expected metrics exposition, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/donations/pi_1", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "don_1") {
		t.Fatalf("expected donation view, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/donations/pi_missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, DefaultWebhookPath, strings.NewReader(`{}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected custom webhook path only, got %d", rec.Code)
	}
}
