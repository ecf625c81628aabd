package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 30 * time.Second

	// PNGDataURIPrefix marks the base64 image payload.
	PNGDataURIPrefix = "data:image/png;base64,"

	snippetLength = 100
)

// Payload is the product creation request body.
type Payload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageBase64 string `json:"image_base64"`
}

// Result is the outcome of one upload attempt.
type Result struct {
	Success   bool
	ProductID string
	ImageURL  string
	Error     string
}

func failure(format string, a ...any) Result {
	return Result{Error: fmt.Sprintf(format, a...)}
}

type createResponse struct {
	Success any `json:"success"`
	Product *struct {
		ID       json.RawMessage `json:"id"`
		ImageURL string          `json:"image_url"`
	} `json:"product"`
	Error any `json:"error"`
}

type ClientOpts struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client posts listings to the catalog's product creation endpoint.
type Client struct {
	httpClient *resty.Client
	url        string
}

func NewClient(opts ClientOpts) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := resty.New().
		SetDebug(false).
		SetTimeout(timeout).
		SetHeaders(
			map[string]string{
				"Accept":     "application/json",
				"User-Agent": "item-publisher/1.0",
			},
		)
	if opts.Token != "" {
		httpClient.SetAuthToken(opts.Token)
	}
	return &Client{httpClient: httpClient, url: opts.URL}
}

// EncodeImage returns data as a PNG data URI.
func EncodeImage(data []byte) string {
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(data)
}

// NewPayload reads the image at imagePath and builds the request body.
func NewPayload(imagePath, name, description, price string) (Payload, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to read image: %w", err)
	}
	return Payload{
		Name:        name,
		Description: description,
		Price:       price,
		ImageBase64: EncodeImage(data),
	}, nil
}

// Upload sends one creation request for the image at imagePath. It never
// retries; every failure is reported through Result.Error.
func (c *Client) Upload(ctx context.Context, imagePath, name, description, price string) Result {
	payload, err := NewPayload(imagePath, name, description, price)
	if err != nil {
		return failure("%v", err)
	}
	return c.Submit(ctx, payload)
}

// Submit posts a prepared payload and classifies the response.
func (c *Client) Submit(ctx context.Context, payload Payload) Result {
	requestID := uuid.New().String()
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-Id", requestID).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		log.Error().Err(err).Str("requestID", requestID).Str("name", payload.Name).Msg("upload failed")
		return Result{Error: err.Error()}
	}

	result := Classify(res.Body())
	logEvent := log.Info()
	if !result.Success {
		logEvent = log.Warn().Str("error", result.Error)
	}
	logEvent.
		Str("requestID", requestID).
		Str("name", payload.Name).
		Int("status", res.StatusCode()).
		Str("productID", result.ProductID).
		Msg("catalog response")
	return result
}

// Classify interprets a catalog response body. The HTTP status is not
// consulted: error statuses carry an {"error": ...} body.
func Classify(body []byte) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return failure("empty response")
	}

	var resp createResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return failure("invalid JSON response: %s", snippet(string(body)))
	}

	if !truthy(resp.Success) {
		msg := "unknown error"
		switch e := resp.Error.(type) {
		case nil:
		case string:
			if e != "" {
				msg = e
			}
		default:
			msg = fmt.Sprint(e)
		}
		return Result{Error: msg}
	}

	result := Result{Success: true}
	if resp.Product == nil {
		log.Warn().Str("body", snippet(string(trimmed))).Msg("catalog reported success without a product")
		return result
	}
	result.ProductID = rawID(resp.Product.ID)
	result.ImageURL = resp.Product.ImageURL
	return result
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if s, err := strconv.Unquote(string(raw)); err == nil {
		return s
	}
	return string(raw)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return false
}
