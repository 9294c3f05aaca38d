package vk

import (
	"context"
	"errors"
	"log/slog"
)

const (
	// One users.search page; the directory caps total reachable results
	// (maxResults in config, ~1000), so offsets past that are pointless.
	pageSize = 100

	// Smart search stops after this many directory calls or once the
	// merged pool is large enough.
	requestBudget    = 10
	targetCandidates = 300

	// Widening fallback margin for the age rung.
	ageWidenMargin = 5

	// Photos kept per candidate, ordered by like count.
	maxProfilePhotos = 3

	// Search preference bounds; registration uses its own (see internal/bot).
	searchAgeMin = 18
	searchAgeMax = 100
)

// strategy is one smart-search pass: a sort order and how many offset
// windows it may consume.
type strategy struct {
	sort    int
	windows int
}

var strategies = []strategy{
	{sort: SortPopularity, windows: 7},
	{sort: SortRecency, windows: 3},
}

// FilterFunc turns a raw merged pool into the usable candidate list
// (exclusions, closed profiles, dedup). Injected so the searcher stays free
// of ledger knowledge.
type FilterFunc func([]Candidate) []Candidate

// directory is the client surface the searcher needs.
type directory interface {
	SearchUsers(ctx context.Context, crit Criteria, sortOrder, offset, count int) ([]Candidate, int, error)
}

// Searcher implements multi-strategy search with widening fallback on top
// of the directory client.
type Searcher struct {
	dir        directory
	maxResults int
	log        *slog.Logger
}

func NewSearcher(dir directory, maxResults int, log *slog.Logger) *Searcher {
	if maxResults <= 0 {
		maxResults = 1000
	}
	return &Searcher{dir: dir, maxResults: maxResults, log: log}
}

// FindCandidates runs the widening ladder: the strict criteria first, then
// progressively relaxed rungs. A rung is attempted only if every earlier
// rung produced zero usable candidates. Only auth failures abort; transient
// directory errors degrade to an empty page so the ladder can proceed.
func (s *Searcher) FindCandidates(ctx context.Context, crit Criteria, filter FilterFunc) ([]Candidate, error) {
	for i, rung := range wideningRungs(crit) {
		pool, err := s.runStrategies(ctx, rung)
		if err != nil {
			return nil, err
		}

		usable := filter(pool)
		s.log.Debug("search rung finished",
			"rung", i, "raw", len(pool), "usable", len(usable))
		if len(usable) > 0 {
			if i > 0 {
				s.log.Info("strict search empty, widened criteria", "rung", i)
			}
			return usable, nil
		}
	}
	return nil, nil
}

// runStrategies merges pages across the ordered strategies, deduplicating by
// id with the earliest-seen instance winning, until the target count or the
// request budget is reached.
func (s *Searcher) runStrategies(ctx context.Context, crit Criteria) ([]Candidate, error) {
	var pool []Candidate
	seen := make(map[int64]struct{})
	budget := requestBudget

	for _, strat := range strategies {
		offset := 0
		for w := 0; w < strat.windows; w++ {
			if budget == 0 || len(pool) >= targetCandidates || offset >= s.maxResults {
				break
			}
			budget--

			page, _, err := s.dir.SearchUsers(ctx, crit, strat.sort, offset, pageSize)
			if err != nil {
				var authErr *AuthError
				if errors.As(err, &authErr) {
					return nil, err
				}
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// Degrade to an empty page and move on.
				s.log.Warn("directory page failed", "sort", strat.sort, "offset", offset, "err", err)
				break
			}

			for _, cand := range page {
				if _, dup := seen[cand.ID]; dup {
					continue
				}
				seen[cand.ID] = struct{}{}
				pool = append(pool, cand)
			}

			if len(page) < pageSize {
				break // short page ends this strategy
			}
			offset += pageSize
		}
	}

	return pool, nil
}

// wideningRungs builds the fixed relaxation ladder: strict, drop city,
// widen age, drop sex, fully open. Relaxations accumulate.
func wideningRungs(crit Criteria) []Criteria {
	rungs := []Criteria{crit}

	cur := crit
	if cur.City != "" {
		cur.City = ""
		rungs = append(rungs, cur)
	}

	widened := cur
	widened.AgeFrom = maxInt(searchAgeMin, cur.AgeFrom-ageWidenMargin)
	widened.AgeTo = minInt(searchAgeMax, cur.AgeTo+ageWidenMargin)
	if widened != cur {
		cur = widened
		rungs = append(rungs, cur)
	}

	if cur.Sex != SexAny {
		cur.Sex = SexAny
		rungs = append(rungs, cur)
	}

	open := Criteria{AgeFrom: searchAgeMin, AgeTo: searchAgeMax}
	if open != cur {
		rungs = append(rungs, open)
	}

	return rungs
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
