package rib

import (
	"github.com/nrc168/bgprouter/internal/prefix"
)

// RIB is the routing information base: an ordered list of route entries
// plus an append-only ledger of the aggregations performed on them. The
// zero value is ready to use.
type RIB struct {
	entries []RouteEntry
	ledger  []AggregationRecord
}

// Snapshot is one row of a dump reply.
type Snapshot struct {
	Prefix  prefix.Prefix
	NextHop string
}

// Insert appends entry to the table, overwriting any existing entry for
// the same (prefix, next hop) pair, then runs the coalescer to a fixed
// point.
func (r *RIB) Insert(entry RouteEntry) {
	entry = entry.Clone()

	for i := range r.entries {
		if r.entries[i].Prefix == entry.Prefix && r.entries[i].NextHop == entry.NextHop {
			r.entries[i] = entry
			r.coalesce()
			return
		}
	}

	r.entries = append(r.entries, entry)
	r.coalesce()
}

// Withdraw removes every entry matching (p, fromNeighbor). If that pair is
// the product of a recorded aggregation, the coalesced parent is first
// disaggregated back into its two constituents so the withdrawal has
// something concrete to act on.
func (r *RIB) Withdraw(p prefix.Prefix, fromNeighbor string) {
	r.disaggregate(p, fromNeighbor)

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.Prefix == p && e.NextHop == fromNeighbor {
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
}

// Snapshot returns the current (prefix, next hop) pairs, in table order,
// for dump responses.
func (r *RIB) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Snapshot{Prefix: e.Prefix, NextHop: e.NextHop})
	}
	return out
}

// Entries returns a read-only copy of the table's route entries, for the
// selector to search over.
func (r *RIB) Entries() []RouteEntry {
	out := make([]RouteEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// mergeable reports whether a and b are adjacent, equal-length siblings
// with identical next hop and identical path attributes.
func mergeable(a, b RouteEntry) bool {
	return a.NextHop == b.NextHop &&
		a.sameAttributes(b) &&
		prefix.Adjacent(a.Prefix, b.Prefix)
}

// coalesce iterates the table to a fixed point, merging every adjacent
// mergeable pair it finds. A single pass can miss second-order merges
// (e.g. four /25s that only become mergeable once the first two /25
// pairs have each become a /24), so the scan repeats until a full pass
// makes no change.
func (r *RIB) coalesce() {
	for {
		merged := false

		for i := 0; i < len(r.entries) && !merged; i++ {
			for j := i + 1; j < len(r.entries); j++ {
				a, b := r.entries[i], r.entries[j]
				if !mergeable(a, b) {
					continue
				}

				r.ledger = append(r.ledger, AggregationRecord{A: a.Clone(), B: b.Clone()})

				var keep, drop int
				if prefix.Lt(a.Prefix.Network, b.Prefix.Network) {
					keep, drop = i, j
				} else {
					keep, drop = j, i
				}

				r.entries[keep].Prefix = r.entries[keep].Prefix.Widen()
				r.entries = append(r.entries[:drop], r.entries[drop+1:]...)

				merged = true
				break
			}
		}

		if !merged {
			return
		}
	}
}

// disaggregate looks for a ledger record whose constituents include
// (p, nextHop) AND whose coalesced parent is actually sitting in the
// table right now — that's what "(p, nextHop) is the result of a
// recorded aggregation" means: p itself isn't a row any more, only its
// widened parent is. If found, the parent entry is removed and both
// original constituents are reinserted, restoring the table to the state
// it was in before that merge.
//
// Records are searched most-recent-first, so that if the same pair of
// constituents were merged, split, and merged again, the merge that is
// actually live in the table is the one undone.
func (r *RIB) disaggregate(p prefix.Prefix, nextHop string) {
	for i := len(r.ledger) - 1; i >= 0; i-- {
		rec := r.ledger[i]

		constituent, ok := rec.has(p, nextHop)
		if !ok {
			continue
		}

		parent := rec.parent()

		parentIdx := -1
		for k, e := range r.entries {
			if e.Prefix == parent && e.NextHop == constituent.NextHop {
				parentIdx = k
				break
			}
		}
		if parentIdx == -1 {
			continue
		}

		other := rec.other(p, nextHop)

		r.entries = append(r.entries[:parentIdx], r.entries[parentIdx+1:]...)
		r.entries = append(r.entries, constituent.Clone(), other.Clone())
		return
	}
}

// GC drops ledger records whose coalesced parent is no longer present in
// the table — meaning the merge has already been undone (or the parent
// was itself withdrawn independently) and the record can never again be
// the target of a disaggregation. This is an optional space optimisation
// (see design notes); skipping it entirely is also correct, the ledger
// then just keeps growing.
func (r *RIB) GC() {
	parentLive := func(rec AggregationRecord) bool {
		parent := rec.parent()
		for _, cur := range r.entries {
			if cur.Prefix == parent && cur.NextHop == rec.A.NextHop {
				return true
			}
		}
		return false
	}

	kept := r.ledger[:0]
	for _, rec := range r.ledger {
		if parentLive(rec) {
			kept = append(kept, rec)
		}
	}
	r.ledger = kept
}

// LedgerLen reports the number of aggregation records kept so far, mostly
// useful for tests.
func (r *RIB) LedgerLen() int {
	return len(r.ledger)
}
