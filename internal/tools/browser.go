package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// BrowserTimeout bounds one page fetch.
	BrowserTimeout = 60 * time.Second

	// MaxPageChars is the truncation limit for extracted page text. Larger
	// pages are cut so the result fits in a model context.
	MaxPageChars = 15000
)

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// BrowserTool fetches a URL and returns its readable text.
type BrowserTool struct {
	client *http.Client
}

// NewBrowserTool creates a browser tool with the default timeout.
func NewBrowserTool() *BrowserTool {
	return &BrowserTool{
		client: &http.Client{Timeout: BrowserTimeout},
	}
}

func (t *BrowserTool) Name() string { return "web_browser" }

func (t *BrowserTool) Description() string {
	return "指定されたURLのウェブページを取得し、本文テキストを返します。入力はURLです。"
}

// Execute fetches the page at the given URL.
func (t *BrowserTool) Execute(ctx context.Context, input string) (string, error) {
	url := strings.TrimSpace(input)
	if url == "" {
		return "", fmt.Errorf("browser tool requires a URL")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", "luca/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	// Read at most a few times the truncation limit; the rest cannot
	// survive truncation anyway.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*MaxPageChars*4))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}
	return Truncate(ExtractText(string(raw)), MaxPageChars), nil
}

// ExtractText strips markup from an HTML document, leaving readable text.
func ExtractText(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, "\n")
	text = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	).Replace(text)
	text = spaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate cuts text at limit runes, appending a marker when cut.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "\n...(truncated)"
}
