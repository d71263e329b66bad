package climate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// titleRe pulls the contents of the first <title> element, across newlines.
var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Probe fetches the archive endpoint without the CSV download parameters and
// returns the page title. A returned title means DNS, TLS, and the frontend
// all answered.
func (c *Client) Probe(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("probe: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read probe body: %w", err)
	}

	text, _ := decodeBody(body, resp.Header.Get("Content-Type"))
	m := titleRe.FindStringSubmatch(text)
	if m == nil {
		return "", errors.New("no title element in response")
	}
	return strings.TrimSpace(m[1]), nil
}
