// Package search drives interactive worker searches: debounced term input,
// immediate structured filters, pagination and stale-response fencing. A
// Registry pairs each search session with a geolocation Tracker.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/ranking"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/geo"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)

const defaultErrorMessage = "Failed to search workers"

// Searcher runs one page request; domain.WorkerSearchUsecase satisfies it.
type Searcher interface {
	Search(ctx context.Context, params domain.WorkerSearchParams) (*domain.SearchPage, error)
}

type Options struct {
	InitialRadiusKm float64
	PageSize        int
	Debounce        time.Duration
	AutoSearch      bool
	SearchTimeout   time.Duration
}

func DefaultOptions() Options {
	return Options{
		InitialRadiusKm: domain.DefaultRadiusKm,
		PageSize:        domain.DefaultPageSize,
		Debounce:        500 * time.Millisecond,
		AutoSearch:      true,
		SearchTimeout:   15 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InitialRadiusKm <= 0 {
		o.InitialRadiusKm = d.InitialRadiusKm
	}
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = d.SearchTimeout
	}
	return o
}

// FilterPatch changes only the non-nil fields.
type FilterPatch struct {
	SearchTerm      *string                    `json:"search_term"`
	RadiusKm        *float64                   `json:"radius_km" validate:"omitempty,gt=0,lte=1000"`
	ExperienceLevel *domain.ExperienceLevel    `json:"experience_level" validate:"omitempty,oneof=all-experience entry mid senior expert"`
	Availability    *domain.AvailabilityFilter `json:"availability" validate:"omitempty,oneof=available busy all"`
	Location        *string                    `json:"location"`
	SortBy          *domain.SortBy             `json:"sort_by" validate:"omitempty,oneof=distance experience match_score recent"`
}

// structural reports whether any non-term field is set.
func (p FilterPatch) structural() bool {
	return p.RadiusKm != nil || p.ExperienceLevel != nil || p.Availability != nil ||
		p.Location != nil || p.SortBy != nil
}

// Snapshot is a consistent copy of the orchestrator state.
type Snapshot struct {
	Status        Status                   `json:"status"`
	Filters       domain.SearchFilters     `json:"filters"`
	DebouncedTerm string                   `json:"debounced_term"`
	Origin        *geo.Coordinate          `json:"origin"`
	Results       []domain.WorkerCandidate `json:"results"`
	Total         int64                    `json:"total"`
	Offset        int                      `json:"offset"`
	Limit         int                      `json:"limit"`
	HasMore       bool                     `json:"has_more"`
	Loading       bool                     `json:"loading"`
	Error         string                   `json:"error,omitempty"`
	Stats         domain.SearchStats       `json:"stats"`
}

// Orchestrator owns one session's search state. Every search takes a token
// from a monotonically increasing counter and only the response carrying the
// current token is applied.
type Orchestrator struct {
	mu       sync.Mutex
	searcher Searcher
	notifier Notifier
	opts     Options
	log      *slog.Logger

	filters       domain.SearchFilters
	debouncedTerm string
	origin        *geo.Coordinate

	results []domain.WorkerCandidate
	total   int64
	offset  int
	hasMore bool
	status  Status
	errMsg  string

	token    uint64
	debounce *time.Timer
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	closed   bool
}

// NewOrchestrator starts idle with default filters. notifier may be nil.
func NewOrchestrator(searcher Searcher, notifier Notifier, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = LogNotifier{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		searcher: searcher,
		notifier: notifier,
		opts:     opts,
		log:      slog.Default().With("component", "search"),
		filters:  initialFilters(opts),
		status:   StatusIdle,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func initialFilters(opts Options) domain.SearchFilters {
	f := domain.DefaultSearchFilters()
	f.RadiusKm = opts.InitialRadiusKm
	return f
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		Status:        o.status,
		Filters:       o.filters,
		DebouncedTerm: o.debouncedTerm,
		Results:       append([]domain.WorkerCandidate(nil), o.results...),
		Total:         o.total,
		Offset:        o.offset,
		Limit:         o.opts.PageSize,
		HasMore:       o.hasMore,
		Loading:       o.status == StatusLoading,
		Error:         o.errMsg,
	}
	if o.origin != nil {
		c := *o.origin
		s.Origin = &c
	}
	s.Stats = ranking.ComputeStats(s.Results, int(s.Total))
	return s
}

// SetOrigin replaces the search centre. An unchanged origin does nothing; a
// new one restarts from the first page.
func (o *Orchestrator) SetOrigin(c *geo.Coordinate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || sameOrigin(o.origin, c) {
		return
	}
	if c == nil {
		o.origin = nil
		return
	}
	origin := *c
	o.origin = &origin
	if o.opts.AutoSearch {
		o.start(0, false)
	}
}

func sameOrigin(a, b *geo.Coordinate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// UpdateSearchTerm stores the raw term; the search follows after the
// debounce window with the latest term only.
func (o *Orchestrator) UpdateSearchTerm(term string) {
	o.UpdateFilters(FilterPatch{SearchTerm: &term})
}

func (o *Orchestrator) UpdateRadius(km float64) {
	o.UpdateFilters(FilterPatch{RadiusKm: &km})
}

func (o *Orchestrator) UpdateExperienceLevel(level domain.ExperienceLevel) {
	o.UpdateFilters(FilterPatch{ExperienceLevel: &level})
}

func (o *Orchestrator) UpdateAvailability(a domain.AvailabilityFilter) {
	o.UpdateFilters(FilterPatch{Availability: &a})
}

func (o *Orchestrator) UpdateSortBy(by domain.SortBy) {
	o.UpdateFilters(FilterPatch{SortBy: &by})
}

func (o *Orchestrator) UpdateLocation(location string) {
	o.UpdateFilters(FilterPatch{Location: &location})
}

// UpdateFilters applies a partial change. Structured fields search at once
// from the first page; a term change is debounced.
func (o *Orchestrator) UpdateFilters(p FilterPatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	if p.RadiusKm != nil {
		o.filters.RadiusKm = *p.RadiusKm
	}
	if p.ExperienceLevel != nil {
		o.filters.ExperienceLevel = *p.ExperienceLevel
	}
	if p.Availability != nil {
		o.filters.Availability = *p.Availability
	}
	if p.Location != nil {
		o.filters.Location = *p.Location
	}
	if p.SortBy != nil {
		o.filters.SortBy = *p.SortBy
	}

	if p.SearchTerm != nil && *p.SearchTerm != o.filters.SearchTerm {
		o.filters.SearchTerm = *p.SearchTerm
		o.scheduleTerm()
	}
	if p.structural() {
		o.offset = 0
		if o.opts.AutoSearch {
			o.start(0, false)
		}
	}
}

// scheduleTerm restarts the debounce window. Caller holds o.mu.
func (o *Orchestrator) scheduleTerm() {
	if o.debounce != nil {
		o.debounce.Stop()
	}
	if o.opts.Debounce == 0 {
		o.applyTerm()
		return
	}
	o.debounce = time.AfterFunc(o.opts.Debounce, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed {
			return
		}
		o.debounce = nil
		o.applyTerm()
	})
}

// applyTerm commits the raw term. Caller holds o.mu.
func (o *Orchestrator) applyTerm() {
	if o.debouncedTerm == o.filters.SearchTerm {
		return
	}
	o.debouncedTerm = o.filters.SearchTerm
	o.offset = 0
	if o.opts.AutoSearch {
		o.start(0, false)
	}
}

// Search runs the first page now, skipping any pending debounce.
func (o *Orchestrator) Search() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.flushDebounce()
	o.start(0, false)
}

// Refresh re-runs the first page with the current committed filters.
func (o *Orchestrator) Refresh() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.start(0, false)
}

// LoadMore appends the next page. It reports false, doing nothing, when there
// is no further page, a search is running or there is no origin.
func (o *Orchestrator) LoadMore() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || !o.hasMore || o.status == StatusLoading || o.origin == nil {
		return false
	}
	return o.start(o.offset+o.opts.PageSize, true)
}

// ClearSearch resets filters, results and pagination without searching.
func (o *Orchestrator) ClearSearch() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.token++
	o.filters = initialFilters(o.opts)
	o.debouncedTerm = ""
	o.results = nil
	o.total = 0
	o.offset = 0
	o.hasMore = false
	o.errMsg = ""
	o.status = StatusIdle
}

// Close stops the debounce timer, cancels in-flight searches and discards
// their responses. It is idempotent.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.closed = true
	o.token++
	o.mu.Unlock()
	o.cancel()
}

// Wait blocks until every started search has returned.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// flushDebounce commits a pending term immediately. Caller holds o.mu.
func (o *Orchestrator) flushDebounce() {
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.debouncedTerm = o.filters.SearchTerm
}

// start launches a search for the page at offset. Without an origin nothing
// happens and no error is recorded. Caller holds o.mu.
func (o *Orchestrator) start(offset int, appendPage bool) bool {
	if o.origin == nil {
		return false
	}
	o.token++
	tok := o.token

	filters := o.filters
	filters.SearchTerm = o.debouncedTerm
	origin := *o.origin
	params := domain.WorkerSearchParams{
		Origin:        &origin,
		SearchFilters: filters,
		Offset:        offset,
		Limit:         o.opts.PageSize,
	}

	// Results stay visible, but no further page may be requested until a
	// first page under the current filters has arrived.
	if !appendPage {
		o.hasMore = false
		o.offset = 0
	}
	o.status = StatusLoading
	o.errMsg = ""
	o.inflight.Add(1)
	go o.run(tok, params, appendPage)
	return true
}

func (o *Orchestrator) run(tok uint64, params domain.WorkerSearchParams, appendPage bool) {
	defer o.inflight.Done()

	ctx, cancel := context.WithTimeout(o.ctx, o.opts.SearchTimeout)
	defer cancel()
	page, err := o.searcher.Search(ctx, params)

	o.mu.Lock()
	if tok != o.token || o.closed {
		o.mu.Unlock()
		o.log.Debug("discarding stale search response", "token", tok)
		return
	}

	if err != nil {
		// Previous results stay visible.
		msg := errorMessage(err)
		o.status = StatusErrored
		o.errMsg = msg
		o.mu.Unlock()

		o.log.Warn("worker search failed", "error", err, "offset", params.Offset)
		o.notifier.Notify(Notification{Level: LevelError, Title: "Search Error", Message: msg})
		return
	}

	if appendPage {
		o.results = append(o.results, page.Items...)
	} else {
		o.results = append([]domain.WorkerCandidate(nil), page.Items...)
	}
	o.total = page.Total
	o.offset = params.Offset
	o.hasMore = page.HasMore
	o.status = StatusLoaded
	o.mu.Unlock()
}

func errorMessage(err error) string {
	if appErr, ok := apperror.As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return defaultErrorMessage
}
