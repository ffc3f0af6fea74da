package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

const DefaultEndpoint = "https://api.tavily.com/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *http.Client
}

type request struct {
	Query           string `json:"query"`
	MaxResults      int    `json:"max_results,omitempty"`
	Topic           string `json:"topic,omitempty"`
	SearchDepth     string `json:"search_depth,omitempty"`
	Days            int    `json:"days,omitempty"`
	ChunksPerSource int    `json:"chunks_per_source,omitempty"`
}

type response struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s Search) Discover(ctx context.Context, q string, opts models.Options) ([]models.Result, error) {
	// https://docs.tavily.com/documentation/api-reference/endpoint/search
	payload := request{
		Query:       q,
		MaxResults:  opts.MaxResults,
		Topic:       string(opts.Topic),
		SearchDepth: opts.Depth,
	}
	if opts.Depth == "advanced" {
		payload.ChunksPerSource = 3
	}
	if opts.Topic == models.TopicNews {
		payload.Days = opts.Days
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.StatusError{Provider: "tavily", Code: resp.StatusCode, Body: string(msg)}
	}

	var raw response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("tavily decode: %w", err)
	}
	out := make([]models.Result, 0, len(raw.Results))
	for i, r := range raw.Results {
		if opts.MaxResults > 0 && i >= opts.MaxResults {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return out, nil
}
