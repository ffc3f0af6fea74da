// Package extract turns raw HTML into readable article text.
package extract

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/reporter/tools/web_fetch/models"
	"github.com/mohammad-safakhou/reporter/utils"
)

// Article runs readability over html fetched from pageURL and keeps both the
// plain text and a Markdown rendering of the article. maxChars caps each of
// them; zero keeps everything.
func Article(html, pageURL string, maxChars int) (models.Result, error) {
	sum := sha1.Sum([]byte(html))
	res := models.Result{URL: pageURL, HTMLHash: hex.EncodeToString(sum[:])}

	article, err := readability.FromReader(strings.NewReader(html), parseURL(pageURL))
	if err != nil {
		return res, err
	}
	res.Title = strings.TrimSpace(article.Title)
	res.Byline = strings.TrimSpace(article.Byline)
	res.SiteName = strings.TrimSpace(article.SiteName)
	res.Text = utils.Truncate(strings.TrimSpace(article.TextContent), maxChars)
	if article.Content != "" {
		markdown, err := converter().ConvertString(article.Content)
		if err == nil {
			res.Markdown = utils.Truncate(strings.TrimSpace(markdown), maxChars)
		}
	}
	return res, nil
}

func converter() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
