package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"qrbar/models"
)

// MinSearchLen is the shortest query sent to the backend, in runes.
const MinSearchLen = 2

type SearchAPI interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// SearchUpdate is published whenever the visible results change.
type SearchUpdate struct {
	Query   string
	Results []models.SearchResult
	Err     error
}

// Searcher debounces free-text queries. Every query gets a sequence number
// and only the response to the latest one is published.
type Searcher struct {
	api      SearchAPI
	debounce time.Duration
	limit    int

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	query    string
	results  []models.SearchResult
	err      error
	onUpdate func(SearchUpdate)
}

func NewSearcher(api SearchAPI, debounce time.Duration, limit int) *Searcher {
	return &Searcher{api: api, debounce: debounce, limit: limit}
}

// OnUpdate registers fn to receive published results. fn runs on the
// goroutine that completed the request.
func (s *Searcher) OnUpdate(fn func(SearchUpdate)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Query restarts the debounce window for q. Queries shorter than
// MinSearchLen clear the results without a request.
func (s *Searcher) Query(ctx context.Context, q string) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	seq := s.seq
	s.query = q

	if utf8.RuneCountInString(q) < MinSearchLen {
		s.results = nil
		s.err = nil
		fn := s.onUpdate
		s.mu.Unlock()
		if fn != nil {
			fn(SearchUpdate{Query: q})
		}
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.fire(ctx, q, seq)
	})
	s.mu.Unlock()
}

func (s *Searcher) fire(ctx context.Context, q string, seq uint64) {
	if !s.current(seq) {
		return
	}

	results, err := s.api.Search(ctx, q, s.limit)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		log.Debug().Str("query", q).Uint64("seq", seq).Msg("stale search response discarded")
		return
	}
	if err != nil {
		s.results = nil
		s.err = err
	} else {
		s.results = results
		s.err = nil
	}
	update := SearchUpdate{Query: q, Results: append([]models.SearchResult(nil), s.results...), Err: s.err}
	fn := s.onUpdate
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("query", q).Msg("search failed")
	}
	if fn != nil {
		fn(update)
	}
}

func (s *Searcher) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}

// Results returns the published results of the latest query.
func (s *Searcher) Results() ([]models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SearchResult(nil), s.results...), s.err
}

// CurrentQuery returns the last query typed, sent or not.
func (s *Searcher) CurrentQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Result looks up a published result by id.
func (s *Searcher) Result(id int64) (models.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return models.SearchResult{}, false
}

// Stop cancels a pending query and drops any response still in flight.
func (s *Searcher) Stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	s.mu.Unlock()
}
