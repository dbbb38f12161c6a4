package rate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/tidwall/gjson"
)

// DefaultURL serves the daily UVI series of the Argentine central bank.
var DefaultURL = "https://api.bcra.gob.ar/estadisticas/v3.0/monetarias/31"

// DefaultPath selects the latest value in that payload.
const DefaultPath = "results.0.valor"

// FetchResult follows the downloader convention of a success flag plus payload.
type FetchResult struct {
	Success bool
	Value   string
}

type Client struct {
	url  string
	path string
	http *http.Client
	log  *logger.Logger
}

func NewClient(url, path string, appLogger *logger.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if path == "" {
		path = DefaultPath
	}
	return &Client{
		url:  url,
		path: path,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  appLogger,
	}
}

// Fetch returns the rate as a locale number string, e.g. "1234,56".
func (c *Client) Fetch(ctx context.Context) FetchResult {
	const component = "RateClient"

	c.log.Debug(component, "Fetching UVI rate: url=%s path=%s", c.url, c.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.log.Error(component, "Failed to create HTTP request: url=%s error=%v", c.url, err)
		return FetchResult{Success: false}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error(component, "HTTP request failed: url=%s error=%v", c.url, err)
		return FetchResult{Success: false}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn(component, "Non-OK HTTP response: status=%s statusCode=%d", resp.Status, resp.StatusCode)
		return FetchResult{Success: false}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error(component, "Failed to read response body: error=%v", err)
		return FetchResult{Success: false}
	}

	value, err := Extract(body, c.path)
	if err != nil {
		c.log.Warn(component, "UVI rate not found in payload: path=%s error=%v", c.path, err)
		return FetchResult{Success: false}
	}

	c.log.Info(component, "UVI rate fetched: value=%s", value)
	return FetchResult{Success: true, Value: value}
}

// Extract reads the value at path. JSON numbers are rewritten with a
// decimal comma, strings are returned trimmed.
func Extract(body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid json payload")
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return "", fmt.Errorf("path %q not present", path)
	}

	switch res.Type {
	case gjson.Number:
		return strings.Replace(strconv.FormatFloat(res.Float(), 'f', -1, 64), ".", ",", 1), nil
	case gjson.String:
		s := strings.TrimSpace(res.String())
		if s == "" {
			return "", fmt.Errorf("path %q is blank", path)
		}
		return s, nil
	}
	return "", fmt.Errorf("path %q holds %s, want number or string", path, res.Type)
}
