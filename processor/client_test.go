package processor

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type scriptedTransport struct {
	response core.TransportResponse
	err      error
	requests []core.TransportRequest
}

func (s *scriptedTransport) Kind() string { return "scripted" }

func (s *scriptedTransport) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	s.requests = append(s.requests, req)
	return s.response, s.err
}

func newTestClient(adapter core.TransportAdapter) *Client {
	return NewClient(core.ProcessorConfig{TimeoutSeconds: 5}, adapter, core.NewObserver(nil, nil))
}

func TestCreateTransferEncodesForm(t *testing.T) {
	adapter := &scriptedTransport{response: core.TransportResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"id":"tr_1","amount":4000,"destination":"acct_a"}`),
	}}
	client := newTestClient(adapter)

	result, err := client.CreateTransfer(context.Background(), core.TransferRequest{
		AmountCents:     4000,
		Currency:        "USD",
		Destination:     "acct_a",
		SourceAccountID: "acct_src",
		TransferGroup:   "pi_1",
		Metadata:        map[string]string{"payment_id": "pi_1"},
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if result.ID != "tr_1" || result.AmountCents != 4000 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(adapter.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(adapter.requests))
	}
	req := adapter.requests[0]
	if req.Method != http.MethodPost || req.URL != "/v1/transfers" {
		t.Fatalf("unexpected request line %s %s", req.Method, req.URL)
	}
	if req.Headers[HeaderConnectedAccount] != "acct_src" {
		t.Fatalf("expected connected account header, got %v", req.Headers)
	}
	if req.Headers[HeaderIdempotencyKey] != "transfer:pi_1:acct_a" {
		t.Fatalf("unexpected idempotency key %q", req.Headers[HeaderIdempotencyKey])
	}
	form, err := url.ParseQuery(string(req.Body))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if form.Get("amount") != "4000" || form.Get("currency") != "usd" || form.Get("metadata[payment_id]") != "pi_1" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestNonSuccessStatusIsPartnerFailure(t *testing.T) {
	adapter := &scriptedTransport{response: core.TransportResponse{
		StatusCode: http.StatusPaymentRequired,
		Body:       []byte(`{"error":{"type":"invalid_request_error","message":"Insufficient funds"}}`),
	}}
	client := newTestClient(adapter)

	_, err := client.CreatePayout(context.Background(), core.PayoutRequest{
		AmountCents: 100,
		Currency:    "usd",
		Destination: "ba_1",
	})
	if !core.IsPartnerCallFailure(err) {
		t.Fatalf("expected partner call failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Insufficient funds") {
		t.Fatalf("expected processor message in error, got %v", err)
	}
}

func TestRetrieveSubscriptionDecodesItems(t *testing.T) {
	adapter := &scriptedTransport{response: core.TransportResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{"id":"sub_1","status":"active","customer":"cus_1","currency":"usd",
			"items":{"data":[{"quantity":1,"price":{"unit_amount":2500,"currency":"usd","recurring":{"interval":"month"}}}]}}`),
	}}
	client := newTestClient(adapter)

	subscription, err := client.RetrieveSubscription(context.Background(), "sub_1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if subscription.AmountCents() != 2500 || subscription.Interval() != "month" {
		t.Fatalf("unexpected subscription %+v", subscription)
	}
	if adapter.requests[0].URL != "/v1/subscriptions/sub_1" {
		t.Fatalf("unexpected url %q", adapter.requests[0].URL)
	}
}

func TestCreateTransferRejectsZeroAmount(t *testing.T) {
	adapter := &scriptedTransport{}
	client := newTestClient(adapter)
	_, err := client.CreateTransfer(context.Background(), core.TransferRequest{Destination: "acct_a"})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(adapter.requests) != 0 {
		t.Fatalf("expected no outbound call")
	}
}
