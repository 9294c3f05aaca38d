package vk_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// fakeDirectory scripts users.search responses per call.
type fakeDirectory struct {
	calls   []vk.Criteria
	respond func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error)
}

func (f *fakeDirectory) SearchUsers(ctx context.Context, crit vk.Criteria, sortOrder, offset, count int) ([]vk.Candidate, int, error) {
	f.calls = append(f.calls, crit)
	return f.respond(crit, sortOrder, offset, count)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func keepAll(pool []vk.Candidate) []vk.Candidate { return pool }

func strictCriteria() vk.Criteria {
	return vk.Criteria{City: "Springfield", AgeFrom: 25, AgeTo: 30, Sex: vk.SexFemale, HasPhoto: true}
}

func TestFindCandidates_StrictHitNeverWidens(t *testing.T) {
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			return []vk.Candidate{{ID: 1}, {ID: 2}}, 2, nil
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	out, err := s.FindCandidates(context.Background(), strictCriteria(), keepAll)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	for _, crit := range dir.calls {
		assert.Equal(t, "Springfield", crit.City, "strict criteria must not be relaxed")
	}
}

func TestFindCandidates_WidensOnlyOnZeroUsable(t *testing.T) {
	// Strict rung (city set) returns nothing; the first relaxed rung (city
	// dropped) has results.
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			if crit.City != "" {
				return nil, 0, nil
			}
			return []vk.Candidate{{ID: 10}}, 1, nil
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	out, err := s.FindCandidates(context.Background(), strictCriteria(), keepAll)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(10), out[0].ID)

	// Later rungs were never tried once a rung produced candidates.
	for _, crit := range dir.calls {
		assert.Equal(t, vk.SexFemale, crit.Sex, "sex rung should not have been reached")
	}
}

func TestFindCandidates_FilteredToZeroTriggersWidening(t *testing.T) {
	// The directory always returns candidate 5, but the filter rejects it on
	// the strict rung. Widening must key off usable, not raw, counts.
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			if crit.City != "" {
				return []vk.Candidate{{ID: 5}}, 1, nil
			}
			return []vk.Candidate{{ID: 6}}, 1, nil
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	filter := func(pool []vk.Candidate) []vk.Candidate {
		out := pool[:0:0]
		for _, c := range pool {
			if c.ID != 5 {
				out = append(out, c)
			}
		}
		return out
	}

	out, err := s.FindCandidates(context.Background(), strictCriteria(), filter)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(6), out[0].ID)
}

func TestFindCandidates_StopsAtTargetWithinBudget(t *testing.T) {
	// Full pages of fresh ids; the searcher must stop once the pool target is
	// reached instead of burning the whole request budget.
	next := int64(0)
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			page := make([]vk.Candidate, count)
			for i := range page {
				next++
				page[i] = vk.Candidate{ID: next}
			}
			return page, 100000, nil
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	out, err := s.FindCandidates(context.Background(), strictCriteria(), keepAll)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(out), 300)
	assert.LessOrEqual(t, len(dir.calls), 10)
}

func TestFindCandidates_AllRungsEmptyIsNotAnError(t *testing.T) {
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			return nil, 0, nil
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	out, err := s.FindCandidates(context.Background(), strictCriteria(), keepAll)
	require.NoError(t, err)
	assert.Empty(t, out)

	// the ladder reached the fully open rung
	last := dir.calls[len(dir.calls)-1]
	assert.Empty(t, last.City)
	assert.Equal(t, vk.SexAny, last.Sex)
	assert.False(t, last.HasPhoto)
}

func TestFindCandidates_AuthErrorAborts(t *testing.T) {
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			return nil, 0, &vk.AuthError{Code: 5, Msg: "expired"}
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	out, err := s.FindCandidates(context.Background(), strictCriteria(), keepAll)
	assert.Nil(t, out)

	var authErr *vk.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Len(t, dir.calls, 1, "auth failure must not be retried across rungs")
}

func TestFindCandidates_TransientErrorDegrades(t *testing.T) {
	// First call on each rung fails with a generic error; the ladder still
	// reaches a rung that works instead of aborting.
	dir := &fakeDirectory{
		respond: func(crit vk.Criteria, sort, offset, count int) ([]vk.Candidate, int, error) {
			if crit.City != "" {
				return nil, 0, &vk.APIError{Code: 100, Msg: "boom"}
			}
			return []vk.Candidate{{ID: 7}}, 1, nil
		},
	}
	s := vk.NewSearcher(dir, 1000, testLogger())

	out, err := s.FindCandidates(context.Background(), strictCriteria(), keepAll)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(7), out[0].ID)
}
