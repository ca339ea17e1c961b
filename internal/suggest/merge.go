package suggest

import "sort"

// mergedCap bounds the final suggestion list.
const mergedCap = 10

// Ranked is one entry of a ranker's output, ready for slot merging.
type Ranked struct {
	Text       string
	UsageCount int
}

// Merge folds the three ranked lists into one ordered, deduplicated
// list of command strings, capped at 10.
//
// Slotting is fixed: the top learned entry, then the top saved entry,
// then the top two public entries. Remaining slots are filled from the
// not-yet-added learned and saved entries, sorted by usage count
// descending, stable on ties in learned-then-saved order. Public
// entries beyond the first two never back-fill; once the two discovery
// slots are spent, the user's own history and vault take precedence.
func Merge(learned, saved, public []Ranked) []string {
	out := make([]string, 0, mergedCap)
	seen := make(map[string]struct{}, mergedCap)

	add := func(text string) {
		if len(out) >= mergedCap || text == "" {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}

	if len(learned) > 0 {
		add(learned[0].Text)
	}
	if len(saved) > 0 {
		add(saved[0].Text)
	}
	for i := 0; i < 2 && i < len(public); i++ {
		add(public[i].Text)
	}

	pool := make([]Ranked, 0, len(learned)+len(saved))
	for _, r := range append(append([]Ranked{}, learned...), saved...) {
		if _, dup := seen[r.Text]; !dup {
			pool = append(pool, r)
		}
	}
	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].UsageCount > pool[b].UsageCount
	})
	for _, r := range pool {
		add(r.Text)
	}

	return out
}
