package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ai-scorecard/auth"
	"ai-scorecard/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// transport retries per page before the page is declared failed
const pageRetries = 2

// Item is one raw entry from the activity feed. A single item carries the
// acting user plus one or more nested event groups.
type Item struct {
	ID     ItemID  `json:"id"`
	Actor  Actor   `json:"actor"`
	Events []Event `json:"events"`
}

type ItemID struct {
	Time string `json:"time"`
}

type Actor struct {
	Email string `json:"email"`
}

type Event struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type activityPage struct {
	Items         []Item `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// Query describes one activity-feed request.
type Query struct {
	EventName  string
	MaxResults int
	StartTime  time.Time
	EndTime    time.Time
	Filters    string // optional server-side filter, e.g. "app_name==gemini_app"
}

// Result is everything FetchAll accumulated. Items may be partial: when
// pagination stopped early Err or Truncated says so, and the caller decides
// whether partial data is usable.
type Result struct {
	Items     []Item
	Pages     int
	Truncated bool  // page ceiling reached; results may be incomplete
	Err       error // a page failed; Items hold what was fetched before it
}

// Client reads the paginated activity feed. It keeps no state between
// calls beyond the HTTP connection pool.
type Client struct {
	endpoint   string
	tokens     auth.TokenProvider
	httpClient *http.Client
	maxPages   int
}

func NewClient(cfg config.GoogleConfig, maxPages int, tokens auth.TokenProvider) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		maxPages: maxPages,
	}
}

// FetchPage retrieves a single page of activity items. Transport errors and
// 5xx responses are retried with exponential backoff; any other non-success
// response fails the page immediately.
func (c *Client) FetchPage(ctx context.Context, q Query, pageToken string) ([]Item, string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("acquiring bearer token: %w", err)
	}

	params := url.Values{}
	params.Set("eventName", q.EventName)
	params.Set("maxResults", strconv.Itoa(q.MaxResults))
	params.Set("startTime", q.StartTime.UTC().Format(time.RFC3339))
	params.Set("endTime", q.EndTime.UTC().Format(time.RFC3339))
	if q.Filters != "" {
		params.Set("filters", q.Filters)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var page activityPage
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			reqErr := fmt.Errorf("activity feed returned %d: %s", resp.StatusCode, body)
			if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
				return reqErr
			}
			return backoff.Permanent(reqErr)
		}

		page = activityPage{}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding activity page: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pageRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, "", err
	}
	return page.Items, page.NextPageToken, nil
}

// FetchAll follows pagination tokens until the feed is exhausted or the
// page ceiling is hit. A failed page stops pagination for this query only;
// the error is carried in the result, never raised past this boundary.
func (c *Client) FetchAll(ctx context.Context, q Query) Result {
	var res Result
	pageToken := ""
	for {
		res.Pages++
		items, next, err := c.FetchPage(ctx, q, pageToken)
		if err != nil {
			res.Err = err
			log.Error().Err(err).Int("pages", res.Pages).
				Time("window_start", q.StartTime).
				Msg("Activity page fetch failed")
			return res
		}
		res.Items = append(res.Items, items...)

		if next == "" {
			return res
		}
		if res.Pages >= c.maxPages {
			res.Truncated = true
			log.Warn().Int("pages", res.Pages).Msg("Reached page ceiling, results may be incomplete")
			return res
		}
		pageToken = next
	}
}
