package climate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/prairiewx/climate-ingest/internal/config"
	"github.com/prairiewx/climate-ingest/internal/domain"
)

// userAgent identifies outbound requests to the archive operator.
const userAgent = "climate-ingest/1.0 (+https://github.com/prairiewx/climate-ingest)"

// Client fetches monthly bulk CSV pages from the climate archive.
type Client struct {
	stationID  int
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a bulk-data client for the configured station.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		stationID: cfg.StationID,
		httpClient: &http.Client{
			Timeout: cfg.ScrapeTimeout,
		},
		baseURL: cfg.ScrapeBaseURL,
		logger:  logger,
	}
}

// FetchMonth requests one month of daily observations as CSV. All outcomes
// are returned values: a 404 maps to domain.ErrEndOfData, while timeouts,
// transport errors, and every other unexpected status map to
// domain.TransientError. No retries happen at this layer.
func (c *Client) FetchMonth(ctx context.Context, month domain.YearMonth) (domain.RawPage, error) {
	params := url.Values{
		"format":    {"csv"},
		"stationID": {strconv.Itoa(c.stationID)},
		"Year":      {strconv.Itoa(month.Year)},
		"Month":     {strconv.Itoa(int(month.Month))},
		"Day":       {"1"},
		"timeframe": {"2"}, // daily granularity
		// The site's download form submits its button value too; the leading
		// space is part of it.
		"submit": {" Download Data"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.RawPage{}, &domain.TransientError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawPage{}, &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.RawPage{}, domain.ErrEndOfData
	}
	if resp.StatusCode != http.StatusOK {
		return domain.RawPage{}, &domain.TransientError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RawPage{}, &domain.TransientError{Err: fmt.Errorf("read body: %w", err)}
	}

	text, charset := decodeBody(body, resp.Header.Get("Content-Type"))
	c.logger.Debug("fetched month page",
		"month", month.String(), "bytes", len(body), "charset", charset)

	return domain.RawPage{Text: text, Charset: charset}, nil
}

// decodeBody converts a response body to UTF-8 text using the charset the
// server declared, defaulting to UTF-8. Undecodable bytes are replaced rather
// than fatal; a partially garbled page still parses row by row.
func decodeBody(body []byte, contentType string) (string, string) {
	charset := "utf-8"
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if v := params["charset"]; v != "" {
			charset = strings.ToLower(v)
		}
	}

	enc, err := htmlindex.Get(charset)
	if err != nil || enc == nil {
		enc = unicode.UTF8
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(body), charset
	}
	return string(decoded), charset
}
