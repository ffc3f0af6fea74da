package web_search

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mohammad-safakhou/reporter/tools/web_search/brave"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
	"github.com/mohammad-safakhou/reporter/tools/web_search/serper"
	"github.com/mohammad-safakhou/reporter/tools/web_search/tavily"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, opts models.Options) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

var (
	ErrUnsupportedProvider = &Error{"unsupported provider"}
	ErrMissingAPIKey       = &Error{"search api key is empty"}
)

// NewWebSearcher builds the provider client. A nil httpClient uses
// http.DefaultClient.
func NewWebSearcher(provider Provider, apiKey string, httpClient *http.Client) (WebSearcher, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch provider {
	case TavilyProvider:
		return tavily.Search{ApiKey: apiKey, Client: httpClient}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Client: httpClient}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Client: httpClient}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// Retrying retries transient provider failures (429, 5xx, network errors)
// with exponential backoff.
type Retrying struct {
	Next       WebSearcher
	MaxRetries uint64
	Initial    time.Duration
}

func (r Retrying) Discover(ctx context.Context, q string, opts models.Options) ([]models.Result, error) {
	b := backoff.NewExponentialBackOff()
	if r.Initial > 0 {
		b.InitialInterval = r.Initial
	}
	var out []models.Result
	op := func() error {
		res, err := r.Next.Discover(ctx, q, opts)
		if err != nil {
			if Transient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = res
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.MaxRetries), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// Transient reports whether err is worth retrying.
func Transient(err error) bool {
	var se *models.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}
