// Package usage models the per-directory usage history that cmdvault
// accumulates for observed commands. The types here are pure domain
// values; JSON encoding happens at the storage boundary.
package usage

import "time"

// DirectoryContext records how often a command was observed in one
// directory, when it was last seen there, and the most recent non-empty
// directory listing supplied with it.
//
// The JSON field names match the wire format reporting clients already
// send, so exported histories stay readable by existing tooling.
type DirectoryContext struct {
	Directory    string `json:"directory"`
	LastSeenAtMs int64  `json:"time"`
	HitCount     int    `json:"count"`
	LastListing  string `json:"lsOutput"`
}

// ContextHistory is an ordered collection of directory contexts.
// At most one entry exists per distinct directory; the empty string is a
// valid, distinct directory key.
type ContextHistory []DirectoryContext

// Merge folds one observation into the history and returns the updated
// history. The receiver is not modified.
//
// If an entry for the directory exists its hit count is incremented, its
// last-seen time refreshed, and its listing overwritten only when the new
// listing is non-empty. Otherwise a new entry is appended. No bound is
// enforced on the number of distinct directories.
func (h ContextHistory) Merge(directory, listing string, now time.Time) ContextHistory {
	nowMs := now.UnixMilli()

	out := make(ContextHistory, len(h))
	copy(out, h)

	for i := range out {
		if out[i].Directory != directory {
			continue
		}
		out[i].HitCount++
		out[i].LastSeenAtMs = nowMs
		if listing != "" {
			out[i].LastListing = listing
		}
		return out
	}

	return append(out, DirectoryContext{
		Directory:    directory,
		LastSeenAtMs: nowMs,
		HitCount:     1,
		LastListing:  listing,
	})
}

// Find returns the entry for the given directory, or nil.
func (h ContextHistory) Find(directory string) *DirectoryContext {
	for i := range h {
		if h[i].Directory == directory {
			return &h[i]
		}
	}
	return nil
}

// TotalHits sums the hit counts across all directories.
func (h ContextHistory) TotalHits() int {
	total := 0
	for i := range h {
		total += h[i].HitCount
	}
	return total
}
