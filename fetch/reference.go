package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Reference is one fetched web source, reduced to readable markdown.
type Reference struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	SiteName  string    `json:"site_name,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Markdown  string    `json:"markdown"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Collector fetches URLs and reduces each page to article markdown.
type Collector struct {
	fetcher   *Fetcher
	converter *md.Converter
}

// NewCollector creates a reference collector with default fetch limits.
func NewCollector() *Collector {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Collector{
		fetcher:   NewFetcher(0, "", 0),
		converter: converter,
	}
}

// Collect fetches one URL and extracts its article content as markdown.
// Readability extraction strips navigation, ads, and boilerplate so the
// literature-review prompt carries only the article itself.
func (c *Collector) Collect(ctx context.Context, urlStr string) (*Reference, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	result, err := c.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(result.Body), parsed)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	markdown, err := c.converter.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = cleanMarkdown(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no readable content at %s", urlStr)
	}

	title := article.Title
	if title == "" {
		title = titleFromHTML(result.Body)
	}

	return &Reference{
		URL:       urlStr,
		Title:     title,
		SiteName:  article.SiteName,
		Excerpt:   article.Excerpt,
		Markdown:  markdown,
		FetchedAt: time.Now(),
	}, nil
}

// FormatForPrompt renders fetched references as source material for the
// literature-review prompt.
func FormatForPrompt(refs []*Reference) string {
	var b strings.Builder
	for i, ref := range refs {
		fmt.Fprintf(&b, "### Source %d: %s\nURL: %s\n\n%s\n\n", i+1, ref.Title, ref.URL, ref.Markdown)
	}
	return strings.TrimSpace(b.String())
}

// titleFromHTML scans raw HTML for the document title when readability
// extraction does not supply one.
func titleFromHTML(body []byte) string {
	tok := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tok.TagName()
			if string(name) == "title" {
				if tok.Next() == html.TextToken {
					return strings.TrimSpace(tok.Token().Data)
				}
				return ""
			}
		}
	}
}

// cleanMarkdown collapses excessive blank lines and trailing whitespace.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
