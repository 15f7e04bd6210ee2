// Package rib implements the routing information base: the ordered table
// of known routes, the append-only aggregation ledger that records
// prefix coalescing so it can be undone, and the best-route selection
// cascade that picks a next hop for a destination address.
package rib

import (
	"fmt"

	"github.com/nrc168/bgprouter/internal/prefix"
)

// Origin describes how a route entered the routing system.
type Origin uint8

const (
	IGP Origin = iota
	EGP
	UNK
)

// Rank orders origins for stage 6 of the selector: IGP beats EGP beats UNK.
// Lower is better.
func (o Origin) Rank() int {
	switch o {
	case IGP:
		return 0
	case EGP:
		return 1
	default:
		return 2
	}
}

func (o Origin) String() string {
	switch o {
	case IGP:
		return "IGP"
	case EGP:
		return "EGP"
	case UNK:
		return "UNK"
	default:
		return "UNK"
	}
}

// ParseOrigin parses the wire representation of an origin; unrecognised
// strings decode as UNK rather than failing, matching the tolerant
// handling the rest of this router gives to unknown enumerants.
func ParseOrigin(s string) Origin {
	switch s {
	case "IGP":
		return IGP
	case "EGP":
		return EGP
	default:
		return UNK
	}
}

// ASPath is an ordered sequence of AS numbers a route has traversed.
type ASPath []int

// Equal reports whether two AS paths have identical elements in the same
// order.
func (p ASPath) Equal(q ASPath) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy, so stored entries never alias a
// caller's backing array.
func (p ASPath) Clone() ASPath {
	out := make(ASPath, len(p))
	copy(out, p)
	return out
}

// Prepend returns a new path with asn placed at the front, the convention
// this router uses for outbound AS-path construction (see design notes on
// path direction). Path length, and therefore tie-break stage 5, is
// invariant under which end asn is added to.
func (p ASPath) Prepend(asn int) ASPath {
	out := make(ASPath, 0, len(p)+1)
	out = append(out, asn)
	out = append(out, p...)
	return out
}

// RouteEntry is a single RIB row.
type RouteEntry struct {
	Prefix     prefix.Prefix
	NextHop    string // neighbor identity (endpoint address) that announced it
	LocalPref  int
	SelfOrigin bool
	ASPath     ASPath
	Origin     Origin
}

// sameAttributes reports whether two entries carry identical path
// attributes (everything except the prefix itself, which the caller
// compares separately). Used by the coalescer's mergeability test.
func (e RouteEntry) sameAttributes(o RouteEntry) bool {
	return e.LocalPref == o.LocalPref &&
		e.SelfOrigin == o.SelfOrigin &&
		e.Origin == o.Origin &&
		e.ASPath.Equal(o.ASPath)
}

// Clone returns a deep copy safe to store independently of e.
func (e RouteEntry) Clone() RouteEntry {
	c := e
	c.ASPath = e.ASPath.Clone()
	return c
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("%s -> %s (lp=%d self=%v path=%v origin=%s)",
		e.Prefix, e.NextHop, e.LocalPref, e.SelfOrigin, e.ASPath, e.Origin)
}

// AggregationRecord is an unordered pair of RouteEntry values that were
// merged to produce one broader-prefix entry. It carries its own copies of
// the constituents rather than pointers into the live table, so the
// ledger never needs to know whether the table has since changed shape
// around them — the arena pattern described in the design notes.
type AggregationRecord struct {
	A, B RouteEntry
}

// has reports whether (p, nextHop) is one of the two constituents of this
// record.
func (r AggregationRecord) has(p prefix.Prefix, nextHop string) (RouteEntry, bool) {
	if r.A.Prefix == p && r.A.NextHop == nextHop {
		return r.A, true
	}
	if r.B.Prefix == p && r.B.NextHop == nextHop {
		return r.B, true
	}
	return RouteEntry{}, false
}

// other returns the constituent of r that is not (p, nextHop).
func (r AggregationRecord) other(p prefix.Prefix, nextHop string) RouteEntry {
	if r.A.Prefix == p && r.A.NextHop == nextHop {
		return r.B
	}
	return r.A
}

// parent returns the coalesced prefix this record would have produced:
// either constituent's network widened by one bit (both sides agree,
// since they were equal-length siblings at merge time).
func (r AggregationRecord) parent() prefix.Prefix {
	return r.A.Prefix.Widen()
}
