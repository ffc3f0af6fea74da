package serper

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

const DefaultEndpoint = "https://google.serper.dev"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *http.Client
}

func (s Search) Discover(ctx context.Context, q string, opts models.Options) ([]models.Result, error) {
	// https://serper.dev/ docs
	k := opts.MaxResults
	path, listKey := "/search", "organic"
	payload := map[string]any{"q": q}
	if k > 0 {
		payload["num"] = k
	}
	if opts.Topic == models.TopicNews {
		path, listKey = "/news", "news"
		if opts.Days > 0 {
			payload["tbs"] = recency(opts.Days)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(endpoint, "/")+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.StatusError{Provider: "serper", Code: resp.StatusCode, Body: string(msg)}
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serper decode: %w", err)
	}

	var out []models.Result
	if items, ok := raw[listKey].([]any); ok {
		for i, it := range items {
			if k > 0 && i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.Result{
				Title: utils.Str(m["title"]), URL: utils.Str(m["link"]), Snippet: utils.Str(m["snippet"]),
			})
		}
	}
	return out, nil
}

// recency maps a day window onto Google's tbs qdr buckets.
func recency(days int) string {
	switch {
	case days <= 1:
		return "qdr:d"
	case days <= 7:
		return "qdr:w"
	case days <= 31:
		return "qdr:m"
	default:
		return "qdr:y"
	}
}
