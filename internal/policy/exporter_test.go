package policy

import (
	"sort"
	"testing"

	"github.com/nrc168/bgprouter/internal/rib"
)

func table() *Table {
	return NewTable([]Neighbor{
		{Endpoint: "A", Relation: rib.Customer},
		{Endpoint: "B", Relation: rib.Peer},
		{Endpoint: "C", Relation: rib.Peer},
		{Endpoint: "D", Relation: rib.Provider},
	})
}

func sortedEndpoints(t *Table, src string) []string {
	out := t.Endpoints(t.ExportSet(src))
	sort.Strings(out)
	return out
}

func TestCustomerUpdatesPropagateToEveryone(t *testing.T) {
	got := sortedEndpoints(table(), "A")
	want := []string{"B", "C", "D"}
	if !equalStrings(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPeerToPeerSuppressed(t *testing.T) {
	got := sortedEndpoints(table(), "B")
	for _, n := range got {
		if n == "C" {
			t.Fatalf("peer update from B must not reach peer C, got %v", got)
		}
	}
}

func TestPeerToCustomerAllowed(t *testing.T) {
	got := sortedEndpoints(table(), "B")
	if !contains(got, "A") {
		t.Fatalf("peer update from B must reach customer A, got %v", got)
	}
}

func TestProviderToPeerSuppressed(t *testing.T) {
	got := sortedEndpoints(table(), "D")
	if contains(got, "B") || contains(got, "C") {
		t.Fatalf("provider update must not reach peers, got %v", got)
	}
	if !contains(got, "A") {
		t.Fatalf("provider update must still reach customer A, got %v", got)
	}
}

func TestExportNeverIncludesSource(t *testing.T) {
	got := sortedEndpoints(table(), "A")
	if contains(got, "A") {
		t.Fatalf("export set must never include the source, got %v", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
