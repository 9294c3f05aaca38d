package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kamaqiyasov/vkinder/internal/matching"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

func TestFilter_DeduplicatesKeepingFirst(t *testing.T) {
	pool := []vk.Candidate{
		{ID: 1, FirstName: "A"},
		{ID: 2, FirstName: "B"},
		{ID: 1, FirstName: "A-dup"},
		{ID: 3, FirstName: "C"},
	}

	out := matching.Filter(pool, matching.NewExclusions(99, nil))

	assert.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, "A", out[0].FirstName) // first occurrence wins
	assert.Equal(t, int64(2), out[1].ID)
	assert.Equal(t, int64(3), out[2].ID)
}

func TestFilter_RemovesExcluded(t *testing.T) {
	pool := []vk.Candidate{{ID: 1}, {ID: 2}, {ID: 3}}
	exclude := matching.NewExclusions(2, []int64{3})

	out := matching.Filter(pool, exclude)

	assert.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)
}

func TestFilter_RemovesClosedAndInaccessibleProfiles(t *testing.T) {
	pool := []vk.Candidate{
		{ID: 1, Closed: true, Inaccessible: true},
		{ID: 2, Closed: true}, // closed is enough on its own, access or not
		{ID: 3, Inaccessible: true},
		{ID: 4},
	}

	out := matching.Filter(pool, matching.NewExclusions(99, nil))

	assert.Len(t, out, 1)
	assert.Equal(t, int64(4), out[0].ID)
}

func TestNewExclusions_AlwaysContainsSelf(t *testing.T) {
	ex := matching.NewExclusions(42, nil)
	_, ok := ex[42]
	assert.True(t, ok)
}
