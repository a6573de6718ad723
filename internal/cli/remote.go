package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-offers/internal/pricing"
	"github.com/noah-isme/backend-offers/internal/resilience"
)

// RemoteOptions configure calls to a running API.
type RemoteOptions struct {
	Server      string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
}

// Client calls the offers API with retries and a circuit breaker.
type Client struct {
	BaseURL string
	Token   string
	HTTP    resilience.HTTPClient
}

// NewClient builds a Client from opts.
func NewClient(opts RemoteOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.Server), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid server url %q", opts.Server)
	}
	return &Client{
		BaseURL: base,
		Token:   opts.Token,
		HTTP: resilience.HTTPClient{
			Client:      resilience.NewTracedClient(opts.Timeout),
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second),
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: opts.MaxAttempts,
			Jitter:      0.2,
		},
	}, nil
}

// ApplyResult is the payload of a successful apply call.
type ApplyResult struct {
	CartID     string          `json:"cart_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Result     pricing.Result  `json:"result"`
}

// APIError is an error response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// Apply reprices cartID on the server. idemKey is sent as Idempotency-Key
// when set.
func (c *Client) Apply(ctx context.Context, cartID, idemKey string) (ApplyResult, error) {
	endpoint := c.BaseURL + "/api/v1/carts/" + url.PathEscape(cartID) + "/apply"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return ApplyResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return ApplyResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var body struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		body.Error.Status = resp.StatusCode
		if body.Error.Code == "" {
			body.Error.Code = http.StatusText(resp.StatusCode)
		}
		return ApplyResult{}, &body.Error
	}
	var body struct {
		Data ApplyResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ApplyResult{}, fmt.Errorf("decode apply response: %w", err)
	}
	return body.Data, nil
}

// NewRemoteCommand creates the remote command group.
func NewRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoteOptions{}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Call a running offers API",
	}
	cmd.PersistentFlags().StringVar(&opts.Server, "server", envDefault("OFFERS_SERVER", "http://localhost:8080"), "API base url")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("OFFERS_TOKEN"), "bearer token")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per-attempt timeout")
	cmd.PersistentFlags().IntVar(&opts.MaxAttempts, "attempts", 3, "attempts for retryable failures")

	var idemKey string
	apply := &cobra.Command{
		Use:   "apply <cart-id>",
		Short: "Reprice a stored cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewClient(*opts)
			if err != nil {
				return err
			}
			res, err := client.Apply(cmd.Context(), args[0], idemKey)
			if err != nil {
				return err
			}
			if rootOpts.Format != "text" {
				return writeStructured(cmd.OutOrStdout(), rootOpts.Format, newPriceReport(nil, res.Result))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.CartID, res.TotalPrice.StringFixed(2))
			return err
		},
	}
	apply.Flags().StringVar(&idemKey, "idempotency-key", "", "Idempotency-Key header")
	cmd.AddCommand(apply)
	return cmd
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
