package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/util"
	"github.com/ppiankov/covenant/internal/worker"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

const tavilyDefaultURL = "https://api.tavily.com"

// Tavily calls the Tavily search API
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	limiter    *worker.Limiter
	now        func() time.Time
}

type tavilyRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

type tavilyError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// NewTavily creates a Tavily client
func NewTavily(cfg model.SearchConfig) (*Tavily, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("Tavily API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tavilyDefaultURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Tavily{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxResults: maxResults,
		httpClient: util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy),
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		now:        time.Now,
	}, nil
}

// Name returns the provider name
func (t *Tavily) Name() string {
	return "tavily"
}

// Search runs one advanced search with a synthesized answer
func (t *Tavily) Search(ctx context.Context, query string) (*model.BackgroundResult, error) {
	endpoint := t.baseURL + "/search"
	if err := t.limiter.Wait(ctx, endpoint); err != nil {
		return nil, eris.Wrap(err, "rate limit wait")
	}

	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		MaxResults:    t.maxResults,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "search %q", query)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr tavilyError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Detail.Error != "" {
			return nil, fmt.Errorf("tavily error (%d): %s", resp.StatusCode, apiErr.Detail.Error)
		}
		return nil, fmt.Errorf("tavily error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "unmarshal response")
	}

	out := &model.BackgroundResult{
		Query:     query,
		Answer:    strings.TrimSpace(parsed.Answer),
		Hits:      make([]model.SearchHit, 0, len(parsed.Results)),
		FetchedAt: t.now().UTC(),
	}
	for _, r := range parsed.Results {
		out.Hits = append(out.Hits, model.SearchHit{
			Title:   StripHTML(r.Title),
			URL:     r.URL,
			Content: StripHTML(r.Content),
			Score:   r.Score,
		})
	}
	return out, nil
}

// StripHTML returns the text content of an HTML fragment with whitespace
// collapsed. Snippets sometimes carry markup from the source page.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
