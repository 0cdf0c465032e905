// Package poller runs one fetch-analyze-notify cycle over the monitored account.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"power_alert/internal/fetcher"
	"power_alert/internal/metrics"
	"power_alert/internal/model"
	"power_alert/internal/notifier"
	"power_alert/internal/storage"
)

// Source returns the most recent candidate posts.
type Source interface {
	Recent(ctx context.Context) ([]model.Post, error)
}

// Analyzer reports which configured names a post mentions.
type Analyzer interface {
	Analyze(ctx context.Context, post model.Post) model.MatchResult
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// Options configures a Poller.
type Options struct {
	Account            string
	Recipients         []string
	RateLimitBackoff   time.Duration
	ServerErrorBackoff time.Duration
	// Seen is optional. When nil every matching post is notified on every poll.
	Seen    storage.Store
	Metrics *metrics.Metrics
	Sleep   Sleeper
}

// Poller fetches posts, analyzes them and sends one notification per matching post.
type Poller struct {
	source   Source
	analyzer Analyzer
	notifier notifier.Notifier
	opts     Options
	log      *slog.Logger
}

// New creates a Poller. A nil opts.Sleep uses Sleep.
func New(source Source, analyzer Analyzer, n notifier.Notifier, opts Options, log *slog.Logger) *Poller {
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	return &Poller{
		source:   source,
		analyzer: analyzer,
		notifier: n,
		opts:     opts,
		log:      log,
	}
}

// Poll runs one cycle. Upstream rate limits and server errors are waited out
// here before returning; every other failure is logged and the cycle ends.
func (p *Poller) Poll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.Metrics.PollDone(metrics.PollError)
			p.log.Error("poll panicked", "panic", r)
		}
	}()

	posts, err := p.source.Recent(ctx)
	switch {
	case errors.Is(err, fetcher.ErrRateLimited):
		p.opts.Metrics.PollDone(metrics.PollRateLimited)
		p.log.Info("rate limit reached, backing off", "wait", p.opts.RateLimitBackoff, "error", err)
		p.opts.Sleep(ctx, p.opts.RateLimitBackoff)
		return
	case errors.Is(err, fetcher.ErrServerError):
		p.opts.Metrics.PollDone(metrics.PollServerError)
		p.log.Info("upstream server error, backing off", "wait", p.opts.ServerErrorBackoff, "error", err)
		p.opts.Sleep(ctx, p.opts.ServerErrorBackoff)
		return
	case err != nil:
		p.opts.Metrics.PollDone(metrics.PollError)
		p.log.Error("fetch posts", "error", err)
		return
	}

	if len(posts) == 0 {
		p.opts.Metrics.PollDone(metrics.PollNoPosts)
		p.log.Info("no posts found")
		return
	}

	sent := 0
	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}
		if p.process(ctx, post) {
			sent++
		}
	}

	p.opts.Metrics.PollDone(metrics.PollOK)
	p.log.Info("poll complete", "posts", len(posts), "notified", sent)
}

func (p *Poller) process(ctx context.Context, post model.Post) bool {
	if p.seen(ctx, post.ID) {
		p.log.Debug("skipping seen post", "post_id", post.ID)
		return false
	}

	res := p.analyzer.Analyze(ctx, post)
	if !res.Matched {
		p.log.Debug("no names matched", "post_id", post.ID)
		return false
	}
	p.opts.Metrics.PostMatched()

	n := notifier.Format(p.opts.Account, res.Names, post, p.opts.Recipients)
	err := p.notifier.Notify(ctx, n)
	p.opts.Metrics.NotificationSent(err)
	if err != nil {
		p.log.Error("send notification", "post_id", post.ID, "names", res.Names, "error", err)
		return false
	}
	p.log.Info("notification sent", "post_id", post.ID, "names", res.Names, "recipients", len(p.opts.Recipients))

	if p.opts.Seen != nil {
		if err := p.opts.Seen.MarkSeen(ctx, post.ID); err != nil {
			p.log.Error("mark seen", "post_id", post.ID, "error", err)
		}
	}
	return true
}

func (p *Poller) seen(ctx context.Context, postID string) bool {
	if p.opts.Seen == nil {
		return false
	}
	seen, err := p.opts.Seen.Seen(ctx, postID)
	if err != nil {
		p.log.Error("check seen", "post_id", postID, "error", err)
		return false
	}
	return seen
}

// Sleep waits for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
