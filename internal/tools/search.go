package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

var resultRe = regexp.MustCompile(`(?is)<a[^>]+class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)

// SearchTool performs a web search and returns the top results as text.
type SearchTool struct {
	client   *http.Client
	endpoint string
	maxHits  int
}

// NewSearchTool creates a search tool against the default endpoint.
func NewSearchTool() *SearchTool {
	return &SearchTool{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: searchEndpoint,
		maxHits:  5,
	}
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "ウェブ検索を実行し、上位の検索結果を返します。入力は検索クエリです。"
}

// Execute runs the search query.
func (t *SearchTool) Execute(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("search tool requires a query")
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "luca/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search request: status %d", resp.StatusCode)
	}

	body := make([]byte, 0, 64*1024)
	buf := make([]byte, 32*1024)
	for len(body) < 1<<20 {
		n, readErr := resp.Body.Read(buf)
		body = append(body, buf[:n]...)
		if readErr != nil {
			break
		}
	}

	matches := resultRe.FindAllStringSubmatch(string(body), t.maxHits)
	if len(matches) == 0 {
		return "検索結果が見つかりませんでした。", nil
	}

	var b strings.Builder
	for i, m := range matches {
		title := strings.TrimSpace(tagRe.ReplaceAllString(m[2], ""))
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, title, m[1])
	}
	return b.String(), nil
}
