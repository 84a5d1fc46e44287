package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/query"
)

const (
	DefaultWebhookPath  = "/webhooks/processor"
	DefaultMaxBodyBytes = 1 << 20
	signatureHeader     = "Stripe-Signature"
)

type DeliveryProcessor interface {
	Process(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error)
}

type DonationLookup interface {
	GetDonation(ctx context.Context, paymentID string) (query.DonationView, error)
}

type Options struct {
	WebhookPath  string
	MaxBodyBytes int64
	Processor    DeliveryProcessor
	Donations    DonationLookup
	Gatherer     prometheus.Gatherer
	Observer     core.Observer
}

// Server hosts the webhook endpoint plus operator probes.
type Server struct {
	router   *gin.Engine
	opts     Options
	observer core.Observer
	http     *http.Server
}

func NewServer(opts Options) *Server {
	if strings.TrimSpace(opts.WebhookPath) == "" {
		opts.WebhookPath = DefaultWebhookPath
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:   router,
		opts:     opts,
		observer: core.NewObserver(opts.Observer.Logger, opts.Observer.Metrics),
	}

	router.POST(opts.WebhookPath, s.handleWebhook)
	router.GET("/healthz", s.handleHealth)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Donations != nil {
		router.GET("/donations/:payment_id", s.handleDonation)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()
	s.observer.Info(ctx, "http server listening", map[string]any{"addr": addr, "webhook_path": s.opts.WebhookPath})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWebhook(c *gin.Context) {
	if s.opts.Processor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": core.ErrorInternal})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": core.ErrorMalformedEvent})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": core.ErrorMalformedEvent})
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for key := range c.Request.Header {
		headers[key] = c.Request.Header.Get(key)
	}
	// A dropped connection must not abort a half-moved split; the source
	// redelivers and the run resumes from stored state.
	result, err := s.opts.Processor.Process(context.WithoutCancel(c.Request.Context()), core.Delivery{
		Body:      body,
		Signature: c.GetHeader(signatureHeader),
		Headers:   headers,
	})

	status := result.StatusCode
	if status == 0 {
		status = http.StatusOK
		if err != nil {
			status = core.ErrorHTTPStatus(err)
		}
	}
	if err != nil {
		c.JSON(status, gin.H{"error": core.MapError(err).TextCode})
		return
	}
	c.JSON(status, gin.H{
		"received": true,
		"event_id": result.EventID,
		"outcome":  result.Outcome,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDonation(c *gin.Context) {
	view, err := s.opts.Donations.GetDonation(c.Request.Context(), c.Param("payment_id"))
	if err != nil {
		c.JSON(core.ErrorHTTPStatus(err), gin.H{"error": core.MapError(err).TextCode})
		return
	}
	c.JSON(http.StatusOK, view)
}
