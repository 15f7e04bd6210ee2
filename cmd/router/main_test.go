package main

import (
	"testing"

	"github.com/nrc168/bgprouter/internal/rib"
)

func TestParseNeighborSpec(t *testing.T) {
	cases := []struct {
		spec     string
		endpoint string
		relation rib.Relation
	}{
		{"192.168.0.2-cust", "192.168.0.2", rib.Customer},
		{"192.168.0.2-peer", "192.168.0.2", rib.Peer},
		{"192.168.0.2-prov", "192.168.0.2", rib.Provider},
	}

	for _, c := range cases {
		endpoint, relation, err := parseNeighborSpec(c.spec)
		if err != nil {
			t.Fatalf("parseNeighborSpec(%q): %v", c.spec, err)
		}
		if endpoint != c.endpoint || relation != c.relation {
			t.Errorf("parseNeighborSpec(%q) = (%q, %v), want (%q, %v)", c.spec, endpoint, relation, c.endpoint, c.relation)
		}
	}
}

func TestParseNeighborSpecRejectsMalformed(t *testing.T) {
	for _, spec := range []string{"noRelation", "192.168.0.2-bogus", ""} {
		if _, _, err := parseNeighborSpec(spec); err == nil {
			t.Errorf("parseNeighborSpec(%q): expected an error", spec)
		}
	}
}
