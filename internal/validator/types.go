// Package validator orchestrates the per-identifier pipeline: candidate
// expansion, search, product page fetch, taxonomy extraction and the
// cataloged/not-cataloged ruling.
package validator

import (
	"strings"
	"time"
)

// Fetch modes reported with each result.
const (
	ModeHTTP     = "http"
	ModeHeadless = "headless"
	ModeAPI      = "api"
	ModeNone     = "none"
)

// SourceAPI tags rows whose taxonomy came from the catalog lookup API
// rather than from page markup.
const SourceAPI = "api"

// Result is one identifier's ruling. Immutable once built.
type Result struct {
	SKU         string   `json:"sku"`
	Cataloged   bool     `json:"cataloged"`
	RawCrumbs   []string `json:"raw_crumbs"`
	CleanCrumbs []string `json:"clean_crumbs"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	Mode        string   `json:"mode"`
	Observation string   `json:"observation,omitempty"`
	BodyLen     int      `json:"html_len"`
}

// RawPath joins the raw trail for display.
func (r Result) RawPath() string {
	return strings.Join(r.RawCrumbs, " > ")
}

// CleanPath joins the cleaned trail for display.
func (r Result) CleanPath() string {
	return strings.Join(r.CleanCrumbs, " > ")
}

// Run statuses for the HTTP surface.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusCanceled  = "canceled"
)

// Counters tracks a run's progress.
type Counters struct {
	Total        int `json:"total"`
	Processed    int `json:"processed"`
	Cataloged    int `json:"cataloged"`
	NotCataloged int `json:"not_cataloged"`
}

// Run is one submitted validation batch.
type Run struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Counters    Counters  `json:"counters"`
}

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}
