// Package matching holds the pure candidate filtering step between raw
// directory pages and a presentable session list. No IO, no state.
package matching

import "github.com/kamaqiyasov/vkinder/internal/vk"

// Exclusions is the set of candidate ids a user must never be shown:
// everything already viewed, favorited or blacklisted, plus the user itself.
type Exclusions map[int64]struct{}

// NewExclusions builds the set from the user's own id and ledger ids.
func NewExclusions(selfID int64, ids []int64) Exclusions {
	ex := make(Exclusions, len(ids)+1)
	ex[selfID] = struct{}{}
	for _, id := range ids {
		ex[id] = struct{}{}
	}
	return ex
}

// Filter removes excluded ids, closed or inaccessible profiles and
// duplicates from the pool. Closed and inaccessible are independent checks: a
// closed profile is skipped even when the directory grants access, because
// its photos and details cannot be shown as a card anyway. First occurrence
// wins, so the incoming strategy order (popularity before recency) is
// preserved.
func Filter(pool []vk.Candidate, exclude Exclusions) []vk.Candidate {
	seen := make(map[int64]struct{}, len(pool))
	out := make([]vk.Candidate, 0, len(pool))

	for _, c := range pool {
		if _, excluded := exclude[c.ID]; excluded {
			continue
		}
		if c.Closed || c.Inaccessible {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
