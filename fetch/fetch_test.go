package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Cover Crops and Soil Biota</title></head>
<body>
<nav><a href="/">Home</a> | <a href="/about">About</a></nav>
<article>
<h1>Cover Crops and Soil Biota</h1>
<p>Cover cropping has been shown to increase microbial biomass in
agricultural soils across multiple long-term field trials. The effect is
strongest in systems that combine legume and grass species.</p>
<p>Meta-analyses report consistent gains in fungal diversity, with effect
sizes varying by climate and tillage regime. Reduced tillage amplifies the
benefit, likely by preserving hyphal networks between seasons.</p>
<p>These findings motivate further work on species mixtures and on the
timing of cover crop termination relative to cash crop planting.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestCollector_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	c := NewCollector()
	ref, err := c.Collect(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if ref.Title != "Cover Crops and Soil Biota" {
		t.Errorf("Title = %q", ref.Title)
	}
	if !strings.Contains(ref.Markdown, "microbial biomass") {
		t.Errorf("article text missing from markdown:\n%s", ref.Markdown)
	}
	if strings.Contains(ref.Markdown, "<p>") {
		t.Error("markdown should not contain raw HTML tags")
	}
	if ref.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestCollector_RejectsNonHTTPSchemes(t *testing.T) {
	c := NewCollector()
	if _, err := c.Collect(context.Background(), "ftp://example.com/file"); err == nil {
		t.Error("expected error for ftp scheme")
	}
	if _, err := c.Collect(context.Background(), "file:///etc/passwd"); err == nil {
		t.Error("expected error for file scheme")
	}
}

func TestFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(0, "", 0)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetcher_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f := NewFetcher(0, "", 1024)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestFetcher_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, "custom-agent/2.0", 0)
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != "custom-agent/2.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestTitleFromHTML(t *testing.T) {
	got := titleFromHTML([]byte("<html><head><title> Raw Page Title </title></head><body></body></html>"))
	if got != "Raw Page Title" {
		t.Errorf("title = %q", got)
	}
	if titleFromHTML([]byte("<html><body><p>no title</p></body></html>")) != "" {
		t.Error("missing title should yield empty string")
	}
}

func TestFormatForPrompt(t *testing.T) {
	refs := []*Reference{
		{URL: "https://a.example", Title: "First", Markdown: "Alpha content."},
		{URL: "https://b.example", Title: "Second", Markdown: "Beta content."},
	}

	out := FormatForPrompt(refs)
	if !strings.Contains(out, "### Source 1: First") {
		t.Errorf("missing first source header:\n%s", out)
	}
	if !strings.Contains(out, "### Source 2: Second") {
		t.Errorf("missing second source header:\n%s", out)
	}
	if !strings.Contains(out, "URL: https://a.example") {
		t.Error("missing source URL")
	}
}
