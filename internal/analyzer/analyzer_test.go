package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"power_alert/internal/model"
	"power_alert/internal/ocr"
)

type imageResult struct {
	text string
	err  error
}

type mockExtractor struct {
	results map[string]imageResult
	calls   []string
}

func (m *mockExtractor) Extract(_ context.Context, url string) (string, error) {
	m.calls = append(m.calls, url)
	r, ok := m.results[url]
	if !ok {
		return "", errors.New("unexpected url")
	}
	return r.text, r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func media(urls ...string) []model.MediaRef {
	var refs []model.MediaRef
	for i, u := range urls {
		refs = append(refs, model.MediaRef{Key: string(rune('a' + i)), Type: "photo", URL: u})
	}
	return refs
}

func TestAnalyze(t *testing.T) {
	names := []string{"Donholm", "Runda", "Kileleshwa"}

	tests := []struct {
		name      string
		post      model.Post
		results   map[string]imageResult
		want      model.MatchResult
		wantCalls []string
	}{
		{
			name: "text and image matches are unioned",
			post: model.Post{ID: "1", Text: "Power outage in Donholm", Media: media("https://img/1")},
			results: map[string]imageResult{
				"https://img/1": {text: "Runda maintenance"},
			},
			want:      model.MatchResult{Matched: true, Names: []string{"Donholm", "Runda"}},
			wantCalls: []string{"https://img/1"},
		},
		{
			name:    "text only",
			post:    model.Post{ID: "2", Text: "KILELESHWA: 9am to 5pm"},
			want:    model.MatchResult{Matched: true, Names: []string{"Kileleshwa"}},
			results: map[string]imageResult{},
		},
		{
			name: "same name in text and image counted once",
			post: model.Post{ID: "3", Text: "Donholm", Media: media("https://img/1", "https://img/2")},
			results: map[string]imageResult{
				"https://img/1": {text: "donholm phase 8"},
				"https://img/2": {text: "DONHOLM"},
			},
			want:      model.MatchResult{Matched: true, Names: []string{"Donholm"}},
			wantCalls: []string{"https://img/1", "https://img/2"},
		},
		{
			name: "failed image does not stop the others",
			post: model.Post{ID: "4", Text: "Planned interruption", Media: media("https://img/bad", "https://img/good")},
			results: map[string]imageResult{
				"https://img/bad":  {err: ocr.ErrDecode},
				"https://img/good": {text: "Area: Runda"},
			},
			want:      model.MatchResult{Matched: true, Names: []string{"Runda"}},
			wantCalls: []string{"https://img/bad", "https://img/good"},
		},
		{
			name: "no match anywhere",
			post: model.Post{ID: "5", Text: "Westlands", Media: media("https://img/1")},
			results: map[string]imageResult{
				"https://img/1": {text: "Karen, Langata"},
			},
			want:      model.MatchResult{Matched: false},
			wantCalls: []string{"https://img/1"},
		},
		{
			name: "images skipped once every name matched",
			post: model.Post{ID: "6", Text: "Donholm, Runda and Kileleshwa", Media: media("https://img/1")},
			results: map[string]imageResult{
				"https://img/1": {text: "unused"},
			},
			want: model.MatchResult{Matched: true, Names: []string{"Donholm", "Runda", "Kileleshwa"}},
		},
		{
			name: "result follows configured order",
			post: model.Post{ID: "7", Text: "Kileleshwa", Media: media("https://img/1")},
			results: map[string]imageResult{
				"https://img/1": {text: "Donholm"},
			},
			want:      model.MatchResult{Matched: true, Names: []string{"Donholm", "Kileleshwa"}},
			wantCalls: []string{"https://img/1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &mockExtractor{results: tt.results}
			a := New(names, ext, nil, discardLogger())

			got := a.Analyze(context.Background(), tt.post)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCalls, ext.calls); diff != "" {
				t.Errorf("extract calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeEmptyNames(t *testing.T) {
	ext := &mockExtractor{}
	a := New(nil, ext, nil, discardLogger())

	got := a.Analyze(context.Background(), model.Post{ID: "1", Text: "Donholm", Media: media("https://img/1")})
	if diff := cmp.Diff(model.MatchResult{}, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}

type failingEngine struct{}

func (failingEngine) Recognize(context.Context, []byte) (string, error) {
	return "", errors.New("engine must not run")
}

func TestAnalyzeImageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := New([]string{"Runda"}, ocr.New(srv.Client(), failingEngine{}, nil), nil, discardLogger())
	got := a.Analyze(context.Background(), model.Post{
		ID:    "1",
		Text:  "Scheduled maintenance",
		Media: media(srv.URL + "/media/missing.jpg"),
	})

	if diff := cmp.Diff(model.MatchResult{}, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}
