// Package index defines the shared types of the full-text index layer.
// Drivers live in subpackages.
package index

// Result is one page of hits. IDs carry entry IDs in rank order; Total
// counts every match, not just the returned page.
type Result struct {
	IDs   []string
	Total uint64
}
