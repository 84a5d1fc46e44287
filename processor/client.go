// Package processor is the outbound client for the payment processor's REST
// API: subscription lookups, connected-account transfers and payouts.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/transport"
)

const (
	HeaderConnectedAccount = "Stripe-Account"
	HeaderIdempotencyKey   = "Idempotency-Key"

	pathSubscriptions = "/v1/subscriptions"
	pathTransfers     = "/v1/transfers"
	pathPayouts       = "/v1/payouts"
)

type Client struct {
	Transport            core.TransportAdapter
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Observer             core.Observer
	Now                  func() time.Time
}

func NewClient(cfg core.ProcessorConfig, adapter core.TransportAdapter, observer core.Observer) *Client {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil, cfg.BaseURL, cfg.SecretKey)
	}
	return &Client{
		Transport:            adapter,
		Timeout:              cfg.Timeout(),
		MaxResponseBodyBytes: cfg.MaxResponseBodyBytes,
		Observer:             observer,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (c *Client) RetrieveSubscription(ctx context.Context, id string) (core.SubscriptionObject, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.SubscriptionObject{}, core.ValidationError("processor: subscription id is required", nil)
	}
	var subscription core.SubscriptionObject
	err := c.call(ctx, "retrieve_subscription", core.TransportRequest{
		Method: http.MethodGet,
		URL:    pathSubscriptions + "/" + url.PathEscape(id),
	}, &subscription)
	if err != nil {
		return core.SubscriptionObject{}, err
	}
	if err := subscription.Validate(); err != nil {
		return core.SubscriptionObject{}, core.PartnerCallError(err, "processor: subscription response is incomplete", map[string]any{
			"subscription_id": id,
		})
	}
	return subscription, nil
}

func (c *Client) CreateTransfer(ctx context.Context, req core.TransferRequest) (core.TransferResult, error) {
	if req.AmountCents <= 0 || strings.TrimSpace(req.Destination) == "" {
		return core.TransferResult{}, core.ValidationError("processor: transfer needs a positive amount and a destination", map[string]any{
			"destination":  req.Destination,
			"amount_cents": req.AmountCents,
		})
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(strings.TrimSpace(req.Currency)))
	form.Set("destination", strings.TrimSpace(req.Destination))
	if group := strings.TrimSpace(req.TransferGroup); group != "" {
		form.Set("transfer_group", group)
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		form.Set("description", description)
	}
	encodeMetadata(form, req.Metadata)

	headers := map[string]string{}
	if source := strings.TrimSpace(req.SourceAccountID); source != "" {
		headers[HeaderConnectedAccount] = source
	}
	if group := strings.TrimSpace(req.TransferGroup); group != "" {
		headers[HeaderIdempotencyKey] = "transfer:" + group + ":" + strings.TrimSpace(req.Destination)
	}

	var payload struct {
		ID          string `json:"id"`
		Amount      int64  `json:"amount"`
		Destination string `json:"destination"`
	}
	if err := c.call(ctx, "create_transfer", core.TransportRequest{
		Method:  http.MethodPost,
		URL:     pathTransfers,
		Headers: headers,
		Body:    []byte(form.Encode()),
	}, &payload); err != nil {
		return core.TransferResult{}, err
	}
	return core.TransferResult{
		ID:          payload.ID,
		AmountCents: payload.Amount,
		Destination: payload.Destination,
	}, nil
}

func (c *Client) CreatePayout(ctx context.Context, req core.PayoutRequest) (core.PayoutResult, error) {
	if req.AmountCents <= 0 || strings.TrimSpace(req.Destination) == "" {
		return core.PayoutResult{}, core.ValidationError("processor: payout needs a positive amount and a destination", map[string]any{
			"destination":  req.Destination,
			"amount_cents": req.AmountCents,
		})
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(strings.TrimSpace(req.Currency)))
	form.Set("destination", strings.TrimSpace(req.Destination))
	if description := strings.TrimSpace(req.Description); description != "" {
		form.Set("description", description)
	}
	encodeMetadata(form, req.Metadata)

	headers := map[string]string{}
	if source := strings.TrimSpace(req.SourceAccountID); source != "" {
		headers[HeaderConnectedAccount] = source
	}

	var payload struct {
		ID          string `json:"id"`
		Amount      int64  `json:"amount"`
		Destination string `json:"destination"`
		Status      string `json:"status"`
	}
	if err := c.call(ctx, "create_payout", core.TransportRequest{
		Method:  http.MethodPost,
		URL:     pathPayouts,
		Headers: headers,
		Body:    []byte(form.Encode()),
	}, &payload); err != nil {
		return core.PayoutResult{}, err
	}
	return core.PayoutResult{
		ID:          payload.ID,
		AmountCents: payload.Amount,
		Destination: payload.Destination,
		Status:      payload.Status,
	}, nil
}

func (c *Client) call(ctx context.Context, operation string, req core.TransportRequest, target any) (err error) {
	if c == nil || c.Transport == nil {
		return fmt.Errorf("processor: client transport is not configured")
	}
	startedAt := c.now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.Observer.IncCounter(ctx, core.MetricPartnerCallsTotal, map[string]string{
			"call":   operation,
			"status": status,
		})
		c.Observer.ObserveOperation(ctx, startedAt, "processor."+operation, err, map[string]any{
			"path": req.URL,
		})
	}()

	req.Timeout = c.Timeout
	req.MaxResponseBodyBytes = c.MaxResponseBodyBytes
	res, err := c.Transport.Do(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return apiError(operation, res)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(res.Body, target); err != nil {
		return core.PartnerCallError(err, "processor: decode response", map[string]any{
			"operation":   operation,
			"status_code": res.StatusCode,
		})
	}
	return nil
}

func (c *Client) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func apiError(operation string, res core.TransportResponse) error {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(res.Body, &envelope)
	message := strings.TrimSpace(envelope.Error.Message)
	if message == "" {
		message = http.StatusText(res.StatusCode)
	}
	return core.PartnerCallError(nil, "processor: "+operation+": "+message, map[string]any{
		"operation":   operation,
		"status_code": res.StatusCode,
		"error_type":  envelope.Error.Type,
		"error_code":  envelope.Error.Code,
	})
}

func encodeMetadata(form url.Values, metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		if strings.TrimSpace(key) != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		form.Set("metadata["+strings.TrimSpace(key)+"]", metadata[key])
	}
}

var _ core.ProcessorClient = (*Client)(nil)
