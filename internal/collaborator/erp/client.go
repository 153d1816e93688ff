// Package erp содержит HTTP-клиент внешней ERP-системы, в которую дублируется каждый новый заказ.
package erp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

const (
	// HeaderOrderID передаёт идентификатор заказа в ERP вместе с payload.
	HeaderOrderID = "X-Order-ID"

	defaultBreakerFailures = 5
	defaultBreakerOpenFor  = 30 * time.Second
)

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (тесты, кастомный транспорт).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout ограничивает длительность одного вызова ERP. 0 означает без ограничения.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCircuitBreaker включает gobreaker: после failures подряд транспортных ошибок
// вызовы отклоняются без сети на время openFor.
func WithCircuitBreaker(failures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		if failures == 0 {
			failures = defaultBreakerFailures
		}
		if openFor <= 0 {
			openFor = defaultBreakerOpenFor
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "erp",
			Timeout: openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.WithFields(log.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("erp circuit breaker state changed")
			},
		})
	}
}

// WithLogger задаёт логгер клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client отправляет payload нового заказа в ERP одним POST-запросом.
// Ответ ERP не анализируется: ошибкой считается только сбой транспорта.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker
	logger     *log.Entry
}

// NewClient создаёт клиент для endpoint (абсолютный http/https URL).
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse erp url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("erp url must be absolute http(s) url, got %q", endpoint)
	}

	c := &Client{
		endpoint:   u.String(),
		httpClient: http.DefaultClient,
		logger:     log.WithField("component", "erp-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateOrder пересылает payload заказа в ERP.
func (c *Client) CreateOrder(ctx context.Context, orderID string, payload []byte) error {
	if c.breaker == nil {
		return c.post(ctx, orderID, payload)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, orderID, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrCollaboratorUnavailable, err)
	}
	return err
}

func (c *Client) post(ctx context.Context, orderID string, payload []byte) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build erp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if orderID != "" {
		req.Header.Set(HeaderOrderID, orderID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erp create order: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   resp.StatusCode,
	}).Debug("erp create order call finished")

	return nil
}

// Noop используется, когда адрес ERP не сконфигурирован.
type Noop struct{}

// CreateOrder ничего не делает.
func (Noop) CreateOrder(context.Context, string, []byte) error { return nil }

var (
	_ domain.OrderCreator = (*Client)(nil)
	_ domain.OrderCreator = Noop{}
)
