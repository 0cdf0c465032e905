package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"power_alert/internal/filter"
	"power_alert/internal/model"
)

const searchPath = "/2/tweets/search/recent"

// Twitter queries the X API v2 recent search endpoint.
type Twitter struct {
	client     HTTPClient
	baseURL    string
	token      string
	account    string
	names      []string
	maxResults int
}

// NewTwitter creates a search client for posts by account mentioning names.
func NewTwitter(client HTTPClient, baseURL, token, account string, names []string) *Twitter {
	return &Twitter{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		account:    account,
		names:      names,
		maxResults: DefaultMaxResults,
	}
}

type searchResponse struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Media []media `json:"media"`
	} `json:"includes"`
	Errors []apiError `json:"errors"`
	Meta   struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

type tweet struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Attachments *struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

type media struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Query returns the search query sent upstream.
func (t *Twitter) Query() string {
	return filter.SearchQuery(t.account, t.names)
}

// Recent returns up to 10 recent matching posts with media resolved to URLs.
func (t *Twitter) Recent(ctx context.Context) ([]model.Post, error) {
	q := url.Values{}
	q.Set("query", t.Query())
	q.Set("max_results", strconv.Itoa(t.maxResults))
	q.Set("tweet.fields", "text,attachments")
	q.Set("expansions", "attachments.media_keys")
	q.Set("media.fields", "url,preview_image_url,type")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("User-Agent", "PowerAlert/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if err := classifyStatus(resp, truncate(string(body), 200)); err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(sr.Data) == 0 && len(sr.Errors) > 0 {
		return nil, fmt.Errorf("search api: %s: %s", sr.Errors[0].Title, sr.Errors[0].Detail)
	}

	urls := make(map[string]model.MediaRef, len(sr.Includes.Media))
	for _, m := range sr.Includes.Media {
		u := m.URL
		if u == "" {
			u = m.PreviewImageURL
		}
		if u == "" {
			continue
		}
		urls[m.MediaKey] = model.MediaRef{Key: m.MediaKey, Type: m.Type, URL: u}
	}

	posts := make([]model.Post, 0, len(sr.Data))
	for _, tw := range sr.Data {
		p := model.Post{ID: tw.ID, Text: tw.Text}
		if tw.Attachments != nil {
			for _, key := range tw.Attachments.MediaKeys {
				if ref, ok := urls[key]; ok {
					p.Media = append(p.Media, ref)
				}
			}
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
