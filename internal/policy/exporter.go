// Package policy implements the relationship-based export filter: given
// an update or revocation received from one neighbor, decide which other
// neighbors it should be re-advertised to.
package policy

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/nrc168/bgprouter/internal/rib"
)

// Neighbor is everything the exporter needs to know about one configured
// neighbor: its identity, its registration ordinal (its index into the
// bitset this package uses for set membership) and its commercial
// relationship.
type Neighbor struct {
	Endpoint string
	Ordinal  uint
	Relation rib.Relation
}

// Table is the set of configured neighbors, indexed both by identity and
// by ordinal so the exporter can go either direction cheaply.
type Table struct {
	byEndpoint map[string]Neighbor
	byOrdinal  []Neighbor
}

// NewTable builds a neighbor table, assigning each neighbor the ordinal
// equal to its position in the input slice.
func NewTable(neighbors []Neighbor) *Table {
	t := &Table{
		byEndpoint: make(map[string]Neighbor, len(neighbors)),
		byOrdinal:  make([]Neighbor, len(neighbors)),
	}
	for i, n := range neighbors {
		n.Ordinal = uint(i)
		t.byEndpoint[n.Endpoint] = n
		t.byOrdinal[i] = n
	}
	return t
}

// Relation looks up a neighbor's commercial relationship. An unknown
// identity is treated as a peer, the most restrictive relationship, so an
// unrecognised neighbor never gains export privileges by default.
func (t *Table) Relation(endpoint string) rib.Relation {
	if n, ok := t.byEndpoint[endpoint]; ok {
		return n.Relation
	}
	return rib.Peer
}

// RelationOf adapts this table to the rib package's RelationOf function
// type, so the same neighbor table drives both the Selector and the
// Exporter.
func (t *Table) RelationOf() rib.RelationOf {
	return t.Relation
}

// ExportSet computes, as a bitset over neighbor ordinals, which neighbors
// an announcement or revocation received from src should be propagated
// to:
//
//	n != src AND (relation(src) == customer OR relation(n) == customer)
//
// A bitset is used rather than a map[string]bool because membership
// testing over a small dense integer domain (one bit per configured
// neighbor) is exactly what it's for, the same role it plays in the
// prefix-trie allotment tables this idea is grounded on.
func (t *Table) ExportSet(src string) *bitset.BitSet {
	set := bitset.New(uint(len(t.byOrdinal)))

	srcIsCustomer := t.Relation(src) == rib.Customer

	for _, n := range t.byOrdinal {
		if n.Endpoint == src {
			continue
		}
		if srcIsCustomer || n.Relation == rib.Customer {
			set.Set(n.Ordinal)
		}
	}

	return set
}

// Endpoints converts an export bitset back into the endpoint identities
// the transport layer deals with.
func (t *Table) Endpoints(set *bitset.BitSet) []string {
	var out []string
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		if int(i) < len(t.byOrdinal) {
			out = append(out, t.byOrdinal[i].Endpoint)
		}
	}
	return out
}

// Neighbors returns every configured neighbor, in registration order.
func (t *Table) Neighbors() []Neighbor {
	return t.byOrdinal
}
