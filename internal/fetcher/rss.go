package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"power_alert/internal/filter"
	"power_alert/internal/model"
)

// RSS reads the account's posts from an RSS mirror (for example a Nitter
// instance) when the search API is unavailable.
type RSS struct {
	client     HTTPClient
	url        string
	names      []string
	maxResults int
}

// NewRSS creates an RSS source for feedURL.
func NewRSS(client HTTPClient, feedURL string, names []string) *RSS {
	return &RSS{
		client:     client,
		url:        feedURL,
		names:      names,
		maxResults: DefaultMaxResults,
	}
}

// Recent returns up to 10 of the newest original posts mentioning a name.
func (r *RSS) Recent(ctx context.Context) ([]model.Post, error) {
	feed, err := r.Fetch(ctx, r.url)
	if err != nil {
		return nil, err
	}

	items := slices.Clone(feed.Items)
	slices.SortStableFunc(items, func(a, b *gofeed.Item) int {
		return publishedAt(b).Compare(publishedAt(a))
	})

	var posts []model.Post
	for _, item := range items {
		if len(posts) == r.maxResults {
			break
		}
		if isRepostOrReply(item.Title) {
			continue
		}
		text := itemText(item)
		if len(filter.MatchNames(item.Title+"\n"+text, r.names)) == 0 {
			continue
		}
		posts = append(posts, model.Post{
			ID:    ItemGUID(item),
			Text:  text,
			Link:  item.Link,
			Media: itemImages(item),
		})
	}
	return posts, nil
}

// Fetch downloads and parses an RSS feed from the given URL.
func (r *RSS) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "PowerAlert/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, ""); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// ItemGUID returns the GUID for an RSS item.
// If the item has no GUID, a SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

func publishedAt(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// Nitter prefixes reposts with "RT by @x:" and replies with "R to @x:".
func isRepostOrReply(title string) bool {
	return strings.HasPrefix(title, "RT by ") || strings.HasPrefix(title, "R to ")
}

func itemText(item *gofeed.Item) string {
	html := item.Description
	if html == "" {
		html = item.Content
	}
	if html != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			if text := strings.TrimSpace(doc.Text()); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(item.Title)
}

func itemImages(item *gofeed.Item) []model.MediaRef {
	var refs []model.MediaRef
	seen := make(map[string]struct{})
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		refs = append(refs, model.MediaRef{Key: strconv.Itoa(len(refs)), Type: "photo", URL: u})
	}

	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") {
			add(enc.URL)
		}
	}
	if item.Image != nil {
		add(item.Image.URL)
	}
	for _, ext := range item.Extensions["media"]["content"] {
		if medium := ext.Attrs["medium"]; medium == "" || medium == "image" {
			add(ext.Attrs["url"])
		}
	}
	for _, html := range []string{item.Description, item.Content} {
		if html == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			add(src)
		})
	}
	return refs
}
