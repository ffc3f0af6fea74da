// Package report writes the final output of a run to the output directory as
// Markdown and, optionally, as a standalone HTML page.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	MarkdownFile = "report.md"
	HTMLFile     = "report.html"
)

// ErrEmptyReport is returned when there is nothing to write.
var ErrEmptyReport = errors.New("report is empty")

// Result lists the files a Writer produced.
type Result struct {
	Markdown string
	HTML     string
}

type Writer struct {
	root     string
	html     bool
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewWriter writes under root. With withHTML every report is also rendered to
// HTML next to its Markdown source.
func NewWriter(root string, withHTML bool) *Writer {
	return &Writer{
		root:     root,
		html:     withHTML,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   contentPolicy(),
	}
}

// Write stores body as <root>/<title>/report.md. title must already be safe
// for use as a directory name.
func (w *Writer) Write(title, body string) (Result, error) {
	if strings.TrimSpace(body) == "" {
		return Result{}, ErrEmptyReport
	}
	dir := filepath.Join(w.root, title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	var res Result
	res.Markdown = filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(res.Markdown, []byte(body), 0o644); err != nil {
		return Result{}, fmt.Errorf("write markdown: %w", err)
	}
	if !w.html {
		return res, nil
	}

	page, err := w.Render(title, body)
	if err != nil {
		return res, err
	}
	res.HTML = filepath.Join(dir, HTMLFile)
	if err := os.WriteFile(res.HTML, page, 0o644); err != nil {
		return res, fmt.Errorf("write html: %w", err)
	}
	return res, nil
}

// contentPolicy keeps the formatting a report uses and drops scripts, event
// handlers and non-web link schemes that model output may carry.
func contentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Render converts body to a complete HTML document.
func (w *Writer) Render(title, body string) ([]byte, error) {
	var content bytes.Buffer
	if err := w.markdown.Convert([]byte(body), &content); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(strings.ReplaceAll(title, "_", " ")))
	page.Write(w.policy.SanitizeBytes(content.Bytes()))
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
