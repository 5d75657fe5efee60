package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/Priya8975/status-relay/internal/domain"
)

const (
	webhookPath = "/webhooks/{id}/{token}"
	messagePath = "/webhooks/{id}/{token}/messages/{message_id}"
	userAgent   = "status-relay (https://github.com/Priya8975/status-relay, 1.0)"
)

// Destination is a single Discord incoming webhook. Every call issues
// exactly one outbound request; nothing is retried here.
type Destination interface {
	Validate(ctx context.Context) bool
	Send(ctx context.Context, msg Message) (domain.DeliveryResult, error)
	Edit(ctx context.Context, messageID string, msg Message) (domain.DeliveryResult, error)
	Delete(ctx context.Context) bool
}

// DestinationFactory builds a Destination for a stored endpoint.
type DestinationFactory interface {
	Destination(ep domain.Endpoint) Destination
}

// Client talks to the Discord webhook API. A single rate limiter is shared
// by every destination it creates so that a large fan-out is paced.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a webhook API client. ratePerSecond <= 0 disables pacing.
func NewClient(baseURL string, timeout time.Duration, ratePerSecond float64, logger *slog.Logger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), max(1, int(ratePerSecond)))
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

// Destination returns a Destination bound to ep.
func (c *Client) Destination(ep domain.Endpoint) Destination {
	return &destination{client: c, endpoint: ep}
}

type destination struct {
	client   *Client
	endpoint domain.Endpoint
}

type webhookInfo struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Name      string `json:"name"`
}

type messageInfo struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (d *destination) request(ctx context.Context) (*resty.Request, error) {
	if err := d.client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return d.client.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"id":    d.endpoint.ID,
			"token": d.endpoint.Token,
		}), nil
}

// Validate fetches the webhook and reports whether it still exists with the
// expected identity. Any error counts as invalid.
func (d *destination) Validate(ctx context.Context) bool {
	req, err := d.request(ctx)
	if err != nil {
		return false
	}

	var info webhookInfo
	resp, err := req.SetResult(&info).Get(webhookPath)
	if err != nil {
		d.client.logger.Debug("webhook validation request failed", "webhook_id", d.endpoint.ID, "error", err)
		return false
	}

	return resp.StatusCode() == http.StatusOK && info.ID == d.endpoint.ID
}

// Send executes the webhook and waits for the created message.
func (d *destination) Send(ctx context.Context, msg Message) (domain.DeliveryResult, error) {
	req, err := d.request(ctx)
	if err != nil {
		return domain.DeliveryResult{}, &EndpointError{Kind: KindUnknown, Err: err}
	}

	var info messageInfo
	var apiErr apiError
	resp, err := req.
		SetQueryParam("wait", "true").
		SetBody(msg).
		SetResult(&info).
		SetError(&apiErr).
		Post(webhookPath)

	return d.result(resp, err, &info, &apiErr)
}

// Edit replaces the content of a message previously sent by this webhook.
func (d *destination) Edit(ctx context.Context, messageID string, msg Message) (domain.DeliveryResult, error) {
	req, err := d.request(ctx)
	if err != nil {
		return domain.DeliveryResult{}, &EndpointError{Kind: KindUnknown, Err: err}
	}

	var info messageInfo
	var apiErr apiError
	resp, err := req.
		SetPathParam("message_id", messageID).
		SetBody(msg).
		SetResult(&info).
		SetError(&apiErr).
		Patch(messagePath)

	return d.result(resp, err, &info, &apiErr)
}

// Delete removes the webhook itself. It reports true only on 204.
func (d *destination) Delete(ctx context.Context) bool {
	req, err := d.request(ctx)
	if err != nil {
		return false
	}

	resp, err := req.Delete(webhookPath)
	if err != nil {
		d.client.logger.Warn("webhook delete failed", "webhook_id", d.endpoint.ID, "error", err)
		return false
	}
	return resp.StatusCode() == http.StatusNoContent
}

func (d *destination) result(resp *resty.Response, err error, info *messageInfo, apiErr *apiError) (domain.DeliveryResult, error) {
	if err != nil {
		return domain.DeliveryResult{}, &EndpointError{Kind: KindUnknown, Err: err}
	}

	if !resp.IsSuccess() {
		return domain.DeliveryResult{}, &EndpointError{
			Kind:    ClassifyStatus(resp.StatusCode()),
			Status:  resp.StatusCode(),
			Message: apiErr.Message,
		}
	}

	ts := info.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return domain.DeliveryResult{MessageID: info.ID, Timestamp: ts}, nil
}
