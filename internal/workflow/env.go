// Package workflow implements the generation step, the hallucination gate and
// the four task handlers (search, smart_search, create, format) built from
// them.
package workflow

import (
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/llm"
	"github.com/mohammad-safakhou/reporter/internal/prompts"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/tools/web_fetch"
	"github.com/mohammad-safakhou/reporter/tools/web_search"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

// Observer receives step and gate outcomes. The metrics package implements it.
type Observer interface {
	ObserveStep(field string, elapsed time.Duration, err error)
	ObserveVerdict(field string, verdict string)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) ObserveStep(string, time.Duration, error) {}
func (NopObserver) ObserveVerdict(string, string)            {}

// Verdict labels reported to the Observer besides yes and no.
const (
	VerdictUnverified = "unverified"
	VerdictInvalid    = "invalid"
)

// Env bundles the collaborators shared by every step, gate and handler.
type Env struct {
	Prompts   *prompts.Repository
	Generator llm.Generator
	Grader    llm.Grader
	Store     checkpoint.Store
	Searcher  web_search.WebSearcher
	// Fetcher, when set, fills in page text for hits the provider returned
	// without content.
	Fetcher       web_fetch.WebFetcher
	SearchOptions models.Options
	// MaxInvalidVerdicts bounds how many non yes/no answers a gate tolerates
	// for one candidate.
	MaxInvalidVerdicts int
	Logger             *zap.Logger
	Observer           Observer
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) observer() Observer {
	if e.Observer == nil {
		return NopObserver{}
	}
	return e.Observer
}

func (e *Env) store() checkpoint.Store {
	if e.Store == nil {
		return checkpoint.Noop{}
	}
	return e.Store
}

// NewStep builds a step for field of state shape P bound to e.
func NewStep[P state.Stateful](e *Env, field string, mode Mode, fields state.Fields[P]) Step[P] {
	return Step[P]{Field: field, Mode: mode, Fields: fields, Env: e}
}

// NewGate builds a gate for field of state shape P bound to e.
func NewGate[P state.Stateful](e *Env, field string, fields state.Fields[P], human func(P) string) Gate[P] {
	return Gate[P]{Field: field, Fields: fields, Human: human, Env: e}
}
