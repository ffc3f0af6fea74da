package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/reporter/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/reporter/tools/web_fetch/models"
)

const maxBodyBytes = 5 << 20

// Fetch downloads static HTML with a plain GET.
type Fetch struct {
	Client    *http.Client
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

func (f Fetch) Exec(ctx context.Context, url string) (models.Result, error) {
	if strings.TrimSpace(url) == "" {
		return models.Result{}, errors.New("invalid url")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Result{URL: url}, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Result{URL: url, Status: 599}, err
	}
	defer resp.Body.Close()
	elapsed := func() int { return int(time.Since(t0) / time.Millisecond) }
	if resp.StatusCode/100 != 2 {
		return models.Result{URL: url, Status: resp.StatusCode, RenderMS: elapsed()}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Result{URL: url, Status: resp.StatusCode, RenderMS: elapsed()}, err
	}

	res, err := extract.Article(string(body), url, f.MaxChars)
	res.Status = resp.StatusCode
	res.RenderMS = elapsed()
	return res, err
}
