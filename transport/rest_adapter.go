package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const KindREST = "rest"

const (
	defaultRESTClientTimeout             = 30 * time.Second
	defaultRESTResponseBodyLimit   int64 = 1 << 20
	ContentTypeFormURLEncoded            = "application/x-www-form-urlencoded"
	headerContentType                    = "Content-Type"
	headerAuthorization                  = "Authorization"
	headerAccept                         = "Accept"
	defaultAcceptHeader                  = "application/json"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter executes requests against a single base URL. Relative request
// URLs are resolved against BaseURL; absolute ones are used as given.
type RESTAdapter struct {
	Client               HTTPDoer
	BaseURL              string
	BearerToken          string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	Now                  func() time.Time
}

func NewRESTAdapter(client HTTPDoer, baseURL string, bearerToken string) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		BaseURL:              strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		BearerToken:          strings.TrimSpace(bearerToken),
		DefaultHeaders:       map[string]string{headerAccept: defaultAcceptHeader},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, transportError("transport: rest adapter requires an http client", map[string]any{
			"adapter": KindREST,
		})
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := a.resolveURL(req.URL, req.Query)
	if err != nil {
		return core.TransportResponse{}, err
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, transportError("transport: create http request", map[string]any{
			"adapter": KindREST,
			"method":  method,
			"error":   err.Error(),
		})
	}
	for key, value := range a.DefaultHeaders {
		setHeader(httpReq.Header, key, value)
	}
	if a.BearerToken != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+a.BearerToken)
	}
	for key, value := range req.Headers {
		setHeader(httpReq.Header, key, value)
	}
	if len(req.Body) > 0 && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, ContentTypeFormURLEncoded)
	}

	startedAt := a.now()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, callError(err, "transport: execute http request", map[string]any{
			"adapter": KindREST,
			"method":  method,
			"path":    httpReq.URL.Path,
		})
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, a.MaxResponseBodyBytes)
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransportResponse{}, callError(err, "transport: read response body", map[string]any{
			"adapter":     KindREST,
			"status_code": httpRes.StatusCode,
		})
	}
	if int64(len(body)) > maxBodyBytes {
		return core.TransportResponse{}, callError(nil, fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes), map[string]any{
			"adapter":          KindREST,
			"status_code":      httpRes.StatusCode,
			"response_limit_b": maxBodyBytes,
		})
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata: map[string]any{
			"duration_ms": a.now().Sub(startedAt).Milliseconds(),
			"kind":        KindREST,
		},
	}, nil
}

func (a *RESTAdapter) resolveURL(raw string, query map[string]string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", transportError("transport: request url is required", map[string]any{"adapter": KindREST})
	}
	if !strings.Contains(raw, "://") {
		if a.BaseURL == "" {
			return "", transportError("transport: relative url without base url", map[string]any{
				"adapter": KindREST,
				"url":     raw,
			})
		}
		raw = a.BaseURL + "/" + strings.TrimLeft(raw, "/")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", transportError("transport: invalid request url", map[string]any{
			"adapter": KindREST,
			"url":     raw,
			"error":   err.Error(),
		})
	}
	values := parsed.Query()
	for key, value := range query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		values.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func (a *RESTAdapter) now() time.Time {
	if a != nil && a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func setHeader(headers http.Header, key, value string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	headers.Set(strings.TrimSpace(key), strings.TrimSpace(value))
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if adapterLimit > 0 {
		return adapterLimit
	}
	return defaultRESTResponseBodyLimit
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
