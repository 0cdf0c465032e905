// Package analyzer matches configured locality names against a post's text
// and the text recognized in its images.
package analyzer

import (
	"context"
	"log/slog"
	"strings"

	"power_alert/internal/filter"
	"power_alert/internal/metrics"
	"power_alert/internal/model"
)

// Extractor returns the text found in the image at url.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Analyzer checks posts against a fixed name list.
type Analyzer struct {
	names     []string
	distinct  int
	extractor Extractor
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New creates an Analyzer. m may be nil.
func New(names []string, extractor Extractor, m *metrics.Metrics, log *slog.Logger) *Analyzer {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[strings.ToLower(n)] = struct{}{}
		}
	}
	return &Analyzer{
		names:     names,
		distinct:  len(set),
		extractor: extractor,
		metrics:   m,
		log:       log,
	}
}

// Analyze returns every configured name mentioned in the post text or in any
// of its images. An image that cannot be fetched, decoded or recognized
// contributes no text.
func (a *Analyzer) Analyze(ctx context.Context, post model.Post) model.MatchResult {
	found := make(map[string]struct{}, len(a.names))
	record := func(text string) {
		for _, n := range filter.MatchNames(text, a.names) {
			found[strings.ToLower(n)] = struct{}{}
		}
	}

	record(post.Text)

	for _, media := range post.Media {
		// Every name already matched; remaining images cannot change the result.
		if len(found) == a.distinct || ctx.Err() != nil {
			break
		}
		text, err := a.extractor.Extract(ctx, media.URL)
		if err != nil {
			a.metrics.OCRFailed()
			a.log.Warn("extract image text", "post_id", post.ID, "url", media.URL, "error", err)
			continue
		}
		a.log.Debug("extracted image text", "post_id", post.ID, "url", media.URL, "chars", len(text))
		record(text)
	}

	var names []string
	for _, n := range a.names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if _, ok := found[key]; !ok {
			continue
		}
		names = append(names, n)
		delete(found, key)
	}
	return model.MatchResult{Matched: len(names) > 0, Names: names}
}
