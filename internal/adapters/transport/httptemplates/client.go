package httptemplates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	domain "github.com/endalk200/better-webhook-sub002/internal/domain/template"
)

// DefaultBaseURL is the template registry used when ClientOptions.BaseURL is
// left empty.
const DefaultBaseURL = "https://raw.githubusercontent.com/endalk200/better-webhook/main"

// DefaultHTTPTimeout applies whenever ClientOptions.HTTPClient is nil or has
// no timeout of its own.
const DefaultHTTPTimeout = 15 * time.Second

// maxTemplateBytes bounds how much of a remote response body the client will
// buffer; a template registry is not expected to serve anything close to 5MB
// per file.
const maxTemplateBytes = 5 * 1024 * 1024

var templatePathPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+(/[a-zA-Z0-9._-]+)*$`)

// ClientOptions configures a Client. The zero value is valid: BaseURL falls
// back to DefaultBaseURL and HTTPClient to an http.Client with
// DefaultHTTPTimeout.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client fetches the JSONC template index and individual templates from an
// HTTP(S) registry, over the adapters/transport/httptemplates.TemplateSource
// port.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(options ClientOptions) (*Client, error) {
	baseURL, err := normalizeBaseURL(options.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: resolveHTTPClient(options.HTTPClient),
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(raw), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid templates base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("invalid templates base URL: scheme must be http or https")
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", errors.New("invalid templates base URL: host cannot be empty")
	}
	return baseURL, nil
}

func resolveHTTPClient(configured *http.Client) *http.Client {
	if configured == nil {
		return &http.Client{Timeout: DefaultHTTPTimeout}
	}
	client := *configured
	if client.Timeout <= 0 {
		client.Timeout = DefaultHTTPTimeout
	}
	return &client
}

// FetchIndex downloads and validates templates/templates.jsonc.
func (c *Client) FetchIndex(ctx context.Context) (domain.TemplatesIndex, error) {
	body, err := c.get(ctx, "/templates/templates.jsonc")
	if err != nil {
		return domain.TemplatesIndex{}, err
	}
	var index domain.TemplatesIndex
	if err := decodeJSONC(body, &index); err != nil {
		return domain.TemplatesIndex{}, fmt.Errorf("parse templates index: %w", err)
	}
	if err := index.Validate(); err != nil {
		return domain.TemplatesIndex{}, err
	}
	return index, nil
}

// FetchTemplate downloads and decodes a single template by its index-relative
// file path, defaulting Method to POST when the payload omits it.
func (c *Client) FetchTemplate(ctx context.Context, templateFile string) (domain.WebhookTemplate, error) {
	relativePath, err := sanitizeTemplatePath(templateFile)
	if err != nil {
		return domain.WebhookTemplate{}, err
	}
	body, err := c.get(ctx, "/templates/"+relativePath)
	if err != nil {
		return domain.WebhookTemplate{}, err
	}
	var webhookTemplate domain.WebhookTemplate
	if err := decodeJSONC(body, &webhookTemplate); err != nil {
		return domain.WebhookTemplate{}, fmt.Errorf("parse template payload: %w", err)
	}
	if strings.TrimSpace(webhookTemplate.Method) == "" {
		webhookTemplate.Method = http.MethodPost
	}
	return webhookTemplate, nil
}

func (c *Client) get(ctx context.Context, relativePath string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+relativePath, nil)
	if err != nil {
		return nil, fmt.Errorf("create template request: %w", err)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request template content: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request template content: unexpected status %d", response.StatusCode)
	}
	return readCapped(response.Body, maxTemplateBytes)
}

func readCapped(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read template response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("read template response body: payload exceeds %d bytes", limit)
	}
	return data, nil
}

// sanitizeTemplatePath rejects traversal/control-character tricks in an
// index-supplied template file path and returns its cleaned, slash-joined
// form. A valid path matches templatePathPattern both before and after
// path.Clean, since Clean alone won't catch e.g. a literal "%2e%2e".
func sanitizeTemplatePath(templateFile string) (string, error) {
	trimmed := strings.TrimSpace(templateFile)
	if trimmed == "" {
		return "", errors.New("template file cannot be empty")
	}
	if err := validateTemplatePathCharacters(trimmed); err != nil {
		return "", err
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+trimmed), "/")
	if cleaned == "" || cleaned == "." || strings.Contains(cleaned, "..") {
		return "", errors.New("template file path is invalid")
	}
	if !strings.HasSuffix(strings.ToLower(cleaned), ".jsonc") {
		return "", errors.New("template file must use .jsonc extension")
	}
	if !templatePathPattern.MatchString(cleaned) {
		return "", errors.New("template file contains unsupported characters")
	}
	return cleaned, nil
}

func validateTemplatePathCharacters(value string) error {
	if strings.ContainsAny(value, "?#%\\") {
		return errors.New("template file contains unsupported characters")
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return errors.New("template file contains control characters")
		}
	}
	if strings.Contains(value, "..") {
		return errors.New("template file contains invalid path traversal")
	}
	if !templatePathPattern.MatchString(value) {
		return errors.New("template file contains unsupported characters")
	}
	return nil
}

func decodeJSONC(raw []byte, target any) error {
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(standardized, target)
}
