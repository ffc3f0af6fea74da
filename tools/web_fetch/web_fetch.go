package web_fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/reporter/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/reporter/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/reporter/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
	UserAgent       = "reporter/1.0 (+https://github.com/mohammad-safakhou/reporter)"
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

var ErrUnsupportedFetcher = &Error{"unsupported fetcher type"}

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int, client *http.Client) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case HTTPFetcherType, "":
		return httpfetch.Fetch{Client: client, Timeout: timeout, MaxChars: maxChars, UserAgent: UserAgent}, nil
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: timeout, MaxChars: maxChars, UserAgent: UserAgent}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
