package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/domain"
)

const (
	graphBaseURL   = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"
	unknownSender  = "unknown@unknown.com"
	defaultSubject = "No Subject"
	maxErrorBody   = 512
)

// ErrMessageNotFound is returned when Graph no longer has the referenced message.
var ErrMessageNotFound = errors.New("graph message not found")

// MessageFetcher resolves a webhook message reference into the full email.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, messageID string) (domain.InboundEmail, error)
}

// Client reads mailbox messages with an app-only token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient builds a Graph client using the client credentials flow. Callers check cfg.Enabled first.
func NewClient(cfg config.GraphConfig, logger *zap.Logger) *Client {
	tenant := cfg.TenantID
	if tenant == "" {
		tenant = "common"
	}
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     microsoft.AzureADEndpoint(tenant).TokenURL,
		Scopes:       []string{graphScope},
	}
	return newClient(creds.Client(context.Background()), graphBaseURL, cfg.Mailbox, cfg.Timeout(), logger)
}

func newClient(httpClient *http.Client, baseURL, mailbox string, timeout time.Duration, logger *zap.Logger) *Client {
	settings := gobreaker.Settings{
		Name:        "graph-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a missing message says nothing about Graph's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMessageNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		mailbox:    mailbox,
		timeout:    timeout,
		cb:         gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

type graphMessage struct {
	Subject *string        `json:"subject"`
	Body    *graphBody     `json:"body"`
	From    *graphReceiver `json:"from"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphReceiver struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// FetchMessage loads sender, subject and plain-text body for messageID.
func (c *Client) FetchMessage(ctx context.Context, messageID string) (domain.InboundEmail, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.getMessage(ctx, messageID)
	})
	if err != nil {
		return domain.InboundEmail{}, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	return toInboundEmail(out.(*graphMessage)), nil
}

func (c *Client) messageURL(messageID string) string {
	owner := "/me"
	if c.mailbox != "" {
		owner = "/users/" + url.PathEscape(c.mailbox)
	}
	return c.baseURL + owner + "/messages/" + url.PathEscape(messageID)
}

func (c *Client) getMessage(ctx context.Context, messageID string) (*graphMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.messageURL(messageID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.body-content-type="text"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrMessageNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("graph api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var msg graphMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode graph message: %w", err)
	}
	return &msg, nil
}

func toInboundEmail(msg *graphMessage) domain.InboundEmail {
	email := domain.InboundEmail{
		SenderEmail: unknownSender,
		Subject:     defaultSubject,
	}
	if msg.From != nil {
		if addr := strings.TrimSpace(msg.From.EmailAddress.Address); addr != "" {
			email.SenderEmail = addr
		}
		name := strings.TrimSpace(msg.From.EmailAddress.Name)
		if name == "" {
			name = email.SenderEmail
		}
		email.SenderName = &name
	}
	if msg.Subject != nil {
		email.Subject = *msg.Subject
	}
	if msg.Body != nil {
		email.Body = msg.Body.Content
	}
	return email
}
