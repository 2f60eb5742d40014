package mollie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/commercelab/mollie-sync/internal/metrics"
)

const DefaultBaseURL = "https://api.mollie.com/v2"

// Client is the typed gateway to the PSP's two resource families. All
// methods take a context and return one of the sentinel errors from
// errors.go on failure.
type Client struct {
	http *resty.Client
	cb   *gobreaker.CircuitBreaker
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(0) // retries are the trigger's job, not the transport's

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mollie",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("psp circuit state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: c, cb: cb}
}

// do executes one request through the breaker and maps failures onto the
// remote error taxonomy. Only 5xx and transport failures count against the
// breaker; a 404 is a valid answer, not an outage.
func (c *Client) do(ctx context.Context, op string, fn func() (*resty.Response, error)) error {
	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := fn()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if resp.StatusCode() >= 500 {
			return nil, wrapStatus(resp.StatusCode(), respError(resp))
		}
		if resp.IsError() {
			// client errors end the call but keep the breaker closed
			return resp, wrapStatus(resp.StatusCode(), respError(resp))
		}
		return resp, nil
	})
	outcome := "ok"
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrTransport, err)
		}
		outcome = "error"
	}
	metrics.PSPRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	return err
}

func respError(resp *resty.Response) *apiError {
	if e, ok := resp.Error().(*apiError); ok && e != nil {
		return e
	}
	return nil
}

func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest) (*Payment, error) {
	var out Payment
	err := c.do(ctx, "create_payment", func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&out).
			SetError(&apiError{}).
			Post("/payments")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	var out Order
	err := c.do(ctx, "create_order", func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&out).
			SetError(&apiError{}).
			Post("/orders")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var out Payment
	err := c.do(ctx, "get_payment", func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetResult(&out).
			SetError(&apiError{}).
			Get("/payments/" + id)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches the order with its payments embedded.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	err := c.do(ctx, "get_order", func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("embed", "payments").
			SetResult(&out).
			SetError(&apiError{}).
			Get("/orders/" + id)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ShipOrder instructs the PSP to ship every line of the order. An empty
// shipment body means ship-all.
func (c *Client) ShipOrder(ctx context.Context, id string) (*Shipment, error) {
	var out Shipment
	err := c.do(ctx, "ship_order", func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(map[string]any{}).
			SetResult(&out).
			SetError(&apiError{}).
			Post("/orders/" + id + "/shipments")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type methodsEmbedded struct {
	Embedded struct {
		Methods []Method `json:"methods"`
	} `json:"_embedded"`
}

// ListMethods returns the payment methods active for the orders resource.
func (c *Client) ListMethods(ctx context.Context) ([]Method, error) {
	var out methodsEmbedded
	err := c.do(ctx, "list_methods", func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("resource", "orders").
			SetQueryParam("includeWallets", "applepay").
			SetResult(&out).
			SetError(&apiError{}).
			Get("/methods/all")
	})
	if err != nil {
		return nil, err
	}
	return out.Embedded.Methods, nil
}
