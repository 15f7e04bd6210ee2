package rib

import (
	"github.com/nrc168/bgprouter/internal/prefix"
)

// Relation is one of the three commercial relationships a neighbor can
// hold with this router.
type Relation uint8

const (
	Customer Relation = iota
	Peer
	Provider
)

// RelationOf looks up the relationship held with a neighbor identity.
// Select takes one of these rather than embedding a neighbor table
// directly, so it stays a pure function of its inputs.
type RelationOf func(neighbor string) Relation

// Select runs the best-route decision cascade for a destination address
// received from source neighbor src, and returns the next hop to forward
// to. ok is false if no route survives every stage.
func Select(entries []RouteEntry, dest prefix.Addr, src string, relationOf RelationOf) (nextHop string, ok bool) {
	candidates := matchDestination(entries, dest)
	if len(candidates) == 0 {
		return "", false
	}

	candidates = longestPrefix(candidates)
	candidates = highestLocalPref(candidates)
	candidates = preferSelfOrigin(candidates)
	candidates = shortestASPath(candidates)
	candidates = bestOrigin(candidates)

	winner, ok := lowestNextHop(candidates)
	if !ok {
		return "", false
	}

	if !relationAllows(src, winner.NextHop, relationOf) {
		return "", false
	}

	return winner.NextHop, true
}

// matchDestination keeps entries whose prefix covers dest.
func matchDestination(entries []RouteEntry, dest prefix.Addr) []RouteEntry {
	var out []RouteEntry
	for _, e := range entries {
		if e.Prefix.Covers(dest) {
			out = append(out, e)
		}
	}
	return out
}

// longestPrefix keeps entries tied for the maximum mask length.
func longestPrefix(in []RouteEntry) []RouteEntry {
	best := uint8(0)
	for _, e := range in {
		if e.Prefix.Length > best {
			best = e.Prefix.Length
		}
	}
	var out []RouteEntry
	for _, e := range in {
		if e.Prefix.Length == best {
			out = append(out, e)
		}
	}
	return out
}

// highestLocalPref keeps entries tied for the maximum local preference.
func highestLocalPref(in []RouteEntry) []RouteEntry {
	best := in[0].LocalPref
	for _, e := range in {
		if e.LocalPref > best {
			best = e.LocalPref
		}
	}
	var out []RouteEntry
	for _, e := range in {
		if e.LocalPref == best {
			out = append(out, e)
		}
	}
	return out
}

// preferSelfOrigin drops every non-self-originated entry if at least one
// self-originated entry survives; otherwise the set passes through
// unchanged.
func preferSelfOrigin(in []RouteEntry) []RouteEntry {
	any := false
	for _, e := range in {
		if e.SelfOrigin {
			any = true
			break
		}
	}
	if !any {
		return in
	}

	var out []RouteEntry
	for _, e := range in {
		if e.SelfOrigin {
			out = append(out, e)
		}
	}
	return out
}

// shortestASPath keeps entries tied for the minimum AS-path length.
func shortestASPath(in []RouteEntry) []RouteEntry {
	best := len(in[0].ASPath)
	for _, e := range in {
		if len(e.ASPath) < best {
			best = len(e.ASPath)
		}
	}
	var out []RouteEntry
	for _, e := range in {
		if len(e.ASPath) == best {
			out = append(out, e)
		}
	}
	return out
}

// bestOrigin keeps only the entries in the best available origin class:
// IGP beats EGP beats UNK.
func bestOrigin(in []RouteEntry) []RouteEntry {
	best := in[0].Origin.Rank()
	for _, e := range in {
		if r := e.Origin.Rank(); r < best {
			best = r
		}
	}
	var out []RouteEntry
	for _, e := range in {
		if e.Origin.Rank() == best {
			out = append(out, e)
		}
	}
	return out
}

// lowestNextHop picks the single entry with the numerically smallest next
// hop address, comparing the full 32-bit form so it is never short-
// circuited on the first octet the way a naive per-octet loop would be.
// A next hop that is not a dotted quad ranks after every dotted-quad next
// hop; among several such, the first in input order is kept.
func lowestNextHop(in []RouteEntry) (RouteEntry, bool) {
	if len(in) == 0 {
		return RouteEntry{}, false
	}

	winner := in[0]
	winnerAddr, err := prefix.ParseDotted(winner.NextHop)
	winnerParsed := err == nil

	for _, e := range in[1:] {
		addr, err := prefix.ParseDotted(e.NextHop)
		if err != nil {
			continue
		}
		if !winnerParsed || prefix.Lt(addr, winnerAddr) {
			winner, winnerAddr, winnerParsed = e, addr, true
		}
	}

	return winner, true
}

// relationAllows applies the commercial-relationship export/forward rule:
// a forward is only permitted if the source or the chosen next hop is a
// customer. Peer-to-peer, peer-to-provider and provider-to-peer forwards
// are forbidden.
func relationAllows(src, nextHop string, relationOf RelationOf) bool {
	return relationOf(src) == Customer || relationOf(nextHop) == Customer
}
