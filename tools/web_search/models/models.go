package models

import "fmt"

// Result is one search hit. Content holds the extracted page text when the
// provider (or a later fetch) supplied it; Snippet is the short description.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
}

// Text returns the richest text available for the hit.
func (r Result) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Snippet
}

type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
)

// Options tunes one query.
type Options struct {
	MaxResults int
	Topic      Topic
	// Days bounds the age of news results. Only used with TopicNews.
	Days  int
	Depth string
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}
