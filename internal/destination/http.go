package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/common/validation"
	"outbound-router/internal/message"
)

// HTTP header names used for correlation
const (
	HeaderMessageID            = "X-Message-Id"
	HeaderCorrelationID        = "X-Correlation-Id"
	HeaderCorrelationGroupSize = "X-Correlation-Group-Size"
	HeaderCorrelationSequence  = "X-Correlation-Sequence"
	HeaderReplyTo              = "X-Reply-To"
)

// Inbound property names set on HTTP responses
const (
	PropertyStatusCode  = "http.status"
	PropertyContentType = "http.content_type"
)

// HTTPConfig configures an HTTP destination
type HTTPConfig struct {
	URL             string            `json:"url" validate:"required,url"`
	Method          string            `json:"method" validate:"omitempty,http_method"`
	Headers         map[string]string `json:"headers"`
	Timeout         time.Duration     `json:"timeout"`
	MaxRetries      int               `json:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay      time.Duration     `json:"retry_delay"`
	FollowRedirects bool              `json:"follow_redirects"`
}

// Validate checks the config and applies defaults
func (c *HTTPConfig) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Method == "" {
		c.Method = http.MethodPost
	}
	c.Method = strings.ToUpper(c.Method)
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return nil
}

// StatusError is the exception carried by responses with a 4xx or 5xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// HTTP posts messages to a URL. Error statuses do not fail the send; they
// come back as a response carrying a *StatusError exception so that
// exception-aware routers can react to them.
type HTTP struct {
	name   string
	config *HTTPConfig
	client *http.Client
	logger logging.Logger
}

// NewHTTP validates config and builds the client
func NewHTTP(name string, config *HTTPConfig) (*HTTP, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigErrorf("invalid http destination %s", name).WithCause(err)
	}

	client := &http.Client{Timeout: config.Timeout}
	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &HTTP{
		name:   name,
		config: config,
		client: client,
		logger: logging.GetGlobalLogger().WithFields(
			logging.Destination(name),
			logging.String("url", config.URL),
		),
	}, nil
}

func (h *HTTP) Name() string { return h.name }

// Send performs the request, retrying transport failures and 5xx statuses.
// Without awaitResponse the response is discarded.
func (h *HTTP) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	body, contentType, err := Encode(msg.Payload())
	if err != nil {
		return nil, errors.ValidationError(err.Error()).WithCause(err)
	}

	var resp *message.Message
	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.config.RetryDelay * time.Duration(attempt)):
			}
		}

		resp, lastErr = h.do(ctx, msg, body, contentType)
		if lastErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.logger.Warn("HTTP request failed",
				logging.Int("attempt", attempt+1),
				logging.Err(lastErr),
			)
			continue
		}
		if se, ok := resp.Exception().(*StatusError); ok && se.StatusCode >= 500 && attempt < h.config.MaxRetries {
			continue
		}
		break
	}

	if lastErr != nil {
		return nil, errors.ConnectionError(
			fmt.Sprintf("HTTP request failed after %d attempts", h.config.MaxRetries+1), lastErr)
	}
	if !awaitResponse {
		return nil, nil
	}
	return resp, nil
}

func (h *HTTP) do(ctx context.Context, msg *message.Message, body []byte, contentType string) (*message.Message, error) {
	req, err := http.NewRequestWithContext(ctx, h.config.Method, h.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range h.config.Headers {
		req.Header.Set(key, value)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(HeaderMessageID, msg.ID())

	c := msg.Correlation()
	if c.HasID() {
		req.Header.Set(HeaderCorrelationID, c.ID())
	}
	if c.HasGroupSize() || c.IsGroupSizeUnknown() {
		req.Header.Set(HeaderCorrelationGroupSize, strconv.Itoa(c.GroupSize()))
	}
	if c.HasSequenceNumber() {
		req.Header.Set(HeaderCorrelationSequence, strconv.Itoa(c.SequenceNumber()))
	}
	if replyTo := msg.ReplyTo(); replyTo != "" {
		req.Header.Set(HeaderReplyTo, replyTo)
	}

	httpResp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	inbound := message.Properties{
		PropertyStatusCode:  httpResp.StatusCode,
		PropertyContentType: httpResp.Header.Get("Content-Type"),
	}
	opts := []message.Option{
		message.WithInbound(inbound),
		message.WithCorrelation(c),
		message.WithOutbound(msg.OutboundProperties()),
	}

	if httpResp.StatusCode >= 400 {
		return message.NewException(&StatusError{StatusCode: httpResp.StatusCode, Body: string(raw)}, opts...), nil
	}
	return message.New(decodeBody(raw, httpResp.Header.Get("Content-Type")), opts...), nil
}

// decodeBody returns JSON bodies decoded, other bodies as strings and an
// empty body as nil
func decodeBody(raw []byte, contentType string) any {
	if len(raw) == 0 {
		return nil
	}
	if strings.HasPrefix(contentType, "application/json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}
