package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyProvider implements SearchProvider against the Tavily search API.
type TavilyProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewTavilyProvider returns nil when apiKey is empty, which the runtime
// treats as the tool being switched off.
func NewTavilyProvider(apiKey string) *TavilyProvider {
	if apiKey == "" {
		return nil
	}
	return &TavilyProvider{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *TavilyProvider) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	// Ask the provider for a synthesized answer alongside raw results.
	IncludeAnswer bool `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs one query and flattens the response into display text:
// the synthesized answer first, then up to three titled snippets.
func (p *TavilyProvider) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:        p.apiKey,
		Query:         query,
		MaxResults:    3,
		IncludeAnswer: true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}

	var b strings.Builder
	if parsed.Answer != "" {
		b.WriteString(StripHTML(parsed.Answer))
	}
	for _, r := range parsed.Results {
		snippet := StripHTML(r.Content)
		if snippet == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s (%s)\n%s", StripHTML(r.Title), r.URL, snippet)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("search returned no usable results")
	}
	return b.String(), nil
}

// StripHTML reduces a possibly-HTML snippet to its text content. Search
// providers return markup in snippets often enough that this runs on every
// result.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}
