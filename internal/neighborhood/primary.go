package neighborhood

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/StreetCred/SC-Backend/internal/geo"
)

const (
	SourcePrimary = "primary"

	identifyPath   = "/api/identify-neighborhood/"
	DefaultTimeout = 10 * time.Second
)

// Client calls the neighborhood identification service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns nil when baseURL is empty so the chain can be built
// without a primary tier.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type identifyResponse struct {
	Status       string `json:"status"`
	Neighborhood string `json:"neighborhood"`
	Message      string `json:"message"`
}

func (c *Client) Name() string { return SourcePrimary }

func (c *Client) Resolve(ctx context.Context, coord geo.Coordinate) Result {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	u := c.baseURL + identifyPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Transient(SourcePrimary, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transient(SourcePrimary, fmt.Errorf("identify request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Transient(SourcePrimary, fmt.Errorf("identify service returned HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Unresolved(SourcePrimary)
	}

	var body identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Transient(SourcePrimary, fmt.Errorf("decoding response: %w", err))
	}

	name := normalizeName(body.Neighborhood)
	if body.Status != "success" || name == "" {
		return Unresolved(SourcePrimary)
	}
	return Resolved(SourcePrimary, name)
}

// normalizeName trims whitespace and folds the name to NFC so cached and
// fresh answers compare equal byte for byte.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
