// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "sort"

// Query is a single question submitted to the backend.
// It lives only as long as the outbound call that carries it.
type Query struct {
	Question string
	Theme    string // Opaque label, never validated against a closed set
}

// CrossThemeConnection points at a passage relevant under another theme.
// It has no identity outside the ChainEntry that owns it.
type CrossThemeConnection struct {
	Theme     string
	Reference string
	Text      string
}

// ChainEntry is one link in the returned chain.
type ChainEntry struct {
	Order         int    // Position reported by the backend
	Reference     string // Locator of the passage
	Text          string
	LinkingPhrase string // Why this entry connects to the next

	// NextReference is nil when this entry ends the chain, whatever its Order.
	NextReference *string

	CrossThemeConnections []CrossThemeConnection
}

// IsTerminal reports whether the entry has no successor.
func (e ChainEntry) IsTerminal() bool {
	return e.NextReference == nil
}

// QueryResult is the full backend answer.
// Chain order is the backend's array order and is never re-sorted.
type QueryResult struct {
	Theme   string // Theme the backend resolved, may differ from the request
	Summary string
	Chain   []ChainEntry
}

// Clone returns a deep copy so callers cannot mutate a published result.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	out := &QueryResult{
		Theme:   r.Theme,
		Summary: r.Summary,
		Chain:   make([]ChainEntry, len(r.Chain)),
	}
	for i, entry := range r.Chain {
		out.Chain[i] = entry.clone()
	}
	return out
}

// ByOrder returns a copy of the chain stably sorted by Order.
// Only for callers that must re-derive sequence; presentation uses Chain as is.
func (r *QueryResult) ByOrder() []ChainEntry {
	if r == nil {
		return nil
	}
	sorted := make([]ChainEntry, len(r.Chain))
	for i, entry := range r.Chain {
		sorted[i] = entry.clone()
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

func (e ChainEntry) clone() ChainEntry {
	out := e
	if e.NextReference != nil {
		next := *e.NextReference
		out.NextReference = &next
	}
	out.CrossThemeConnections = make([]CrossThemeConnection, len(e.CrossThemeConnections))
	copy(out.CrossThemeConnections, e.CrossThemeConnections)
	return out
}
