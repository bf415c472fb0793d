package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"athlete-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

// Client posts athlete notifications to the external notification
// service. Delivery is best effort; callers log failures and move on.
type Client struct {
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.NotifierURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type Notification struct {
	AthleteID     string   `json:"athleteId"`
	RequestID     string   `json:"requestId"`
	Kind          string   `json:"kind"` // "request_accepted" | "request_rejected"
	Message       string   `json:"message"`
	Location      string   `json:"location,omitempty"`
	ScheduledDate string   `json:"scheduledDate,omitempty"`
	ScheduledTime string   `json:"scheduledTime,omitempty"`
	Equipment     []string `json:"equipment,omitempty"`
}

func (c *Client) Send(ctx context.Context, n Notification) error {
	if c.baseURL == "" {
		return nil // notifier not configured
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/notifications")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return err
		}
	}

	if resp.StatusCode() >= 300 {
		return fmt.Errorf("notifier error: %d", resp.StatusCode())
	}
	return nil
}
