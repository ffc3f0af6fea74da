package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
	"github.com/mohammad-safakhou/reporter/utils"
)

const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *http.Client
}

func (s Search) Discover(ctx context.Context, q string, opts models.Options) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	k := opts.MaxResults
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	url := fmt.Sprintf("%s?q=%s", endpoint, utils.UrlQuery(q))
	if k > 0 {
		url += fmt.Sprintf("&count=%d", k)
	}
	if opts.Topic == models.TopicNews && opts.Days > 0 {
		url += "&freshness=" + freshness(opts.Days)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.StatusError{Provider: "brave", Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string   `json:"title"`
				URL     string   `json:"url"`
				Snippet string   `json:"description"`
				Extra   []string `json:"extra_snippets"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("brave decode: %w", err)
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if k > 0 && i >= k {
			break
		}
		out = append(out, models.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Content: strings.Join(r.Extra, "\n"),
		})
	}
	return out, nil
}

func freshness(days int) string {
	switch {
	case days <= 1:
		return "pd"
	case days <= 7:
		return "pw"
	case days <= 31:
		return "pm"
	default:
		return "py"
	}
}
