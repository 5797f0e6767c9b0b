package catalog

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront-gateway/internal/models"
)

// ListingFetcher is the upstream surface the coordinator depends on.
// *upstream.Client satisfies it.
type ListingFetcher interface {
	ListProducts(ctx context.Context, params models.QueryParams) (*models.Listing, error)
	FilterAggregate(ctx context.Context, categories []string) (*models.FilterAggregate, error)
}

// ListingCache caches whole listing pages keyed by their query params.
// A nil cache disables caching; errors are treated as misses.
type ListingCache interface {
	GetListing(params models.QueryParams) (*models.Listing, error)
	SetListing(params models.QueryParams, l *models.Listing) error
}

const (
	defaultLimit    = 12
	maxLimit        = 100
	defaultDebounce = 300 * time.Millisecond
)

// Options tunes a coordinator. Zero values fall back to defaults.
type Options struct {
	Limit    int
	Debounce time.Duration
}

// Coordinator owns the catalog query state for one session: committed and
// pending filter selections, sort, page, the live-search term, and the last
// successfully fetched listing. It issues fetches through the ListingFetcher
// and only commits a response that corresponds to the most recently issued
// request, so a slow earlier response can never clobber a faster later one.
type Coordinator struct {
	mu      sync.Mutex
	fetcher ListingFetcher
	cache   ListingCache

	limit    int
	debounce time.Duration

	committed models.FilterSelection
	pending   models.FilterSelection
	sort      string
	page      int

	searchTerm    string
	searchFilters models.FilterSelection
	searchSort    string

	listing  *models.Listing
	fetchErr error

	searchResults *models.Listing
	searchErr     error

	seq            uint64
	searchSeq      uint64
	inflightCancel context.CancelFunc
	searchCancel   context.CancelFunc
	searchTimer    *time.Timer
	closed         bool
}

// New builds a coordinator with empty selections, sort=default and page=1.
func New(fetcher ListingFetcher, cache ListingCache, opts Options) *Coordinator {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Coordinator{
		fetcher:       fetcher,
		cache:         cache,
		limit:         limit,
		debounce:      debounce,
		committed:     models.FilterSelection{},
		pending:       models.FilterSelection{},
		searchFilters: models.FilterSelection{},
		sort:          models.SortDefault,
		searchSort:    models.SortDefault,
		page:          1,
	}
}

// UpdatePendingFilter replaces the draft selection. It never touches the
// committed selection and never triggers a fetch.
func (c *Coordinator) UpdatePendingFilter(sel models.FilterSelection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = sel.Clone()
}

// PendingFilters returns a copy of the current draft.
func (c *Coordinator) PendingFilters() models.FilterSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Clone()
}

// CommittedFilters returns a copy of the selection driving the grid.
func (c *Coordinator) CommittedFilters() models.FilterSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed.Clone()
}

// ApplyFilters commits sel (or the pending draft when sel is nil), resets the
// page to 1 and fetches the listing. Exactly one fetch is issued.
func (c *Coordinator) ApplyFilters(ctx context.Context, sel models.FilterSelection) error {
	c.mu.Lock()
	if sel != nil {
		c.committed = sel.Clone()
	} else {
		c.committed = c.pending.Clone()
	}
	c.pending = c.committed.Clone()
	c.page = 1
	seq, params, fctx := c.beginFetchLocked(ctx)
	c.mu.Unlock()
	return c.fetch(fctx, seq, params)
}

// ClearAllFilters empties both selections, resets the page and refetches.
func (c *Coordinator) ClearAllFilters(ctx context.Context) error {
	c.mu.Lock()
	c.committed = models.FilterSelection{}
	c.pending = models.FilterSelection{}
	c.page = 1
	seq, params, fctx := c.beginFetchLocked(ctx)
	c.mu.Unlock()
	return c.fetch(fctx, seq, params)
}

// SetSort commits a new sort value and refetches in place: the current page is
// deliberately kept.
func (c *Coordinator) SetSort(ctx context.Context, sort string) error {
	if !models.ValidSort(sort) {
		return &InvalidSortError{Value: sort}
	}
	c.mu.Lock()
	c.sort = sort
	seq, params, fctx := c.beginFetchLocked(ctx)
	c.mu.Unlock()
	return c.fetch(fctx, seq, params)
}

// SetPage commits a new page and refetches. The page is clamped to
// [1, totalPages] against the last known pagination.
func (c *Coordinator) SetPage(ctx context.Context, page int) error {
	c.mu.Lock()
	if page < 1 {
		page = 1
	}
	if c.listing != nil && c.listing.Pagination.TotalPages > 0 && page > c.listing.Pagination.TotalPages {
		page = c.listing.Pagination.TotalPages
	}
	c.page = page
	seq, params, fctx := c.beginFetchLocked(ctx)
	c.mu.Unlock()
	return c.fetch(fctx, seq, params)
}

// Refresh refetches the listing for the current committed state.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	seq, params, fctx := c.beginFetchLocked(ctx)
	c.mu.Unlock()
	return c.fetch(fctx, seq, params)
}

// Listing returns the last committed listing (nil before the first successful
// fetch) and the error flag of the most recent fetch. A failed fetch keeps the
// prior listing visible.
func (c *Coordinator) Listing() (*models.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listing, c.fetchErr
}

// State reports the current committed query inputs.
func (c *Coordinator) State() (sort string, page, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort, c.page, c.limit
}

// beginFetchLocked snapshots fresh query params, bumps the request sequence
// and cancels the previous in-flight request. Callers hold c.mu.
func (c *Coordinator) beginFetchLocked(ctx context.Context) (uint64, models.QueryParams, context.Context) {
	c.seq++
	seq := c.seq
	params := models.QueryParams{
		Page:    c.page,
		Limit:   c.limit,
		Sort:    c.sort,
		Filters: c.committed.Clone(),
	}
	if c.inflightCancel != nil {
		c.inflightCancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	c.inflightCancel = cancel
	return seq, params, fctx
}

// fetch resolves one listing request and commits the result only when it is
// still the latest issued request.
func (c *Coordinator) fetch(ctx context.Context, seq uint64, params models.QueryParams) error {
	if c.cache != nil {
		if cached, err := c.cache.GetListing(params); err == nil && cached != nil {
			c.commit(seq, cached, nil)
			return nil
		}
	}

	listing, err := c.fetcher.ListProducts(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded or torn down: discard silently.
			return nil
		}
		log.Warnf("catalog listing fetch failed: %v", err)
		c.commit(seq, nil, err)
		return err
	}

	if c.commit(seq, listing, nil) && c.cache != nil {
		if cerr := c.cache.SetListing(params, listing); cerr != nil {
			log.Debugf("listing cache set failed: %v", cerr)
		}
	}
	return nil
}

// commit installs a response if seq is still the latest request. On error the
// prior listing stays untouched and only the error flag flips.
func (c *Coordinator) commit(seq uint64, listing *models.Listing, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false // stale response, a newer request was issued
	}
	if err != nil {
		c.fetchErr = err
		return false
	}
	c.listing = listing
	c.fetchErr = nil
	return true
}

// SetSearchTerm updates the live-search term and (re)schedules the debounced
// search fetch. Keystrokes inside the debounce window coalesce into a single
// request; an empty term cancels the pending fetch and clears results.
func (c *Coordinator) SetSearchTerm(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.searchTerm = text
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	if text == "" {
		c.searchResults = nil
		c.searchErr = nil
		return
	}
	c.searchTimer = time.AfterFunc(c.debounce, c.runSearch)
}

// SetSearchSort changes the sort used by search queries; it does not touch the
// main grid and takes effect on the next search fetch.
func (c *Coordinator) SetSearchSort(sort string) error {
	if !models.ValidSort(sort) {
		return &InvalidSortError{Value: sort}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchSort = sort
	return nil
}

// SetSearchFilters changes the filters used by search queries.
func (c *Coordinator) SetSearchFilters(sel models.FilterSelection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchFilters = sel.Clone()
}

// SearchResults returns the latest search listing (nil when none) and the
// error flag of the last search fetch.
func (c *Coordinator) SearchResults() (*models.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchResults, c.searchErr
}

// runSearch fires after the debounce window. It snapshots its own params and
// sequence so a newer keystroke invalidates it.
func (c *Coordinator) runSearch() {
	c.mu.Lock()
	if c.closed || c.searchTerm == "" {
		c.mu.Unlock()
		return
	}
	c.searchSeq++
	seq := c.searchSeq
	params := models.QueryParams{
		Page:    1,
		Limit:   c.limit,
		Sort:    c.searchSort,
		Search:  c.searchTerm,
		Filters: c.searchFilters.Clone(),
	}
	if c.searchCancel != nil {
		c.searchCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.searchCancel = cancel
	c.mu.Unlock()

	listing, err := c.fetcher.ListProducts(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.searchSeq || c.closed {
		return // a newer search superseded this one
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Warnf("catalog search fetch failed: %v", err)
			c.searchErr = err
		}
		return
	}
	c.searchResults = listing
	c.searchErr = nil
}

// LoadFilterDescriptors fetches the filter aggregate for the category context
// and derives the renderable descriptor list. On fetch failure it degrades to
// an empty list so the grid keeps working without a filter panel.
func (c *Coordinator) LoadFilterDescriptors(ctx context.Context, categories []string) []models.FilterDescriptor {
	agg, err := c.fetcher.FilterAggregate(ctx, categories)
	if err != nil {
		log.Warnf("filter aggregate fetch failed, hiding filter panel: %v", err)
		return nil
	}
	return DeriveFilterDescriptors(agg)
}

// Close abandons the debounce timer and any in-flight requests. The
// coordinator must not be used afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	if c.inflightCancel != nil {
		c.inflightCancel()
	}
	if c.searchCancel != nil {
		c.searchCancel()
	}
}

// InvalidSortError rejects sort values outside the fixed enumeration.
type InvalidSortError struct {
	Value string
}

func (e *InvalidSortError) Error() string {
	return "invalid sort value: " + e.Value
}
