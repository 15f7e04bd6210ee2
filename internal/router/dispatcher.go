package router

import (
	"github.com/nrc168/bgprouter/internal/logging"
	"github.com/nrc168/bgprouter/internal/policy"
	"github.com/nrc168/bgprouter/internal/prefix"
	"github.com/nrc168/bgprouter/internal/rib"
)

// Sender is everything the dispatcher needs from the transport layer: the
// ability to hand an outbound Message to a named neighbor. It is the
// whole of the dispatcher's contract with NeighborIO, so the two packages
// don't need to know about each other's internals.
type Sender interface {
	Send(endpoint string, m Message) error
}

// Dispatcher wires the RIB, the Selector (via rib.Select) and the
// Exporter together and is the single place inbound frames enter the
// route-processing engine.
type Dispatcher struct {
	ASN       int
	RIB       *rib.RIB
	Neighbors *policy.Table
	Send      Sender
	Log       logging.Notifier

	// updates and revocations are recorded verbatim, as received, so a
	// future extension (e.g. route-refresh) has the original
	// announcements to replay without having to reverse-engineer them
	// out of the current RIB state.
	updateLedger []UpdateMessage
	revokeLedger []RevokeMessage
}

func (d *Dispatcher) log() logging.Notifier {
	if d.Log != nil {
		return d.Log
	}
	return logging.Nil{}
}

// Dispatch routes one inbound message to its handler. Decoding failures
// (including unknown message types) are expected to have already been
// turned away by Decode; Dispatch only sees well-formed Message values.
func (d *Dispatcher) Dispatch(m Message) {
	switch v := m.(type) {
	case UpdateMessage:
		d.handleUpdate(v)
	case RevokeMessage:
		d.handleRevoke(v)
	case DataMessage:
		d.handleData(v)
	case DumpMessage:
		d.handleDump(v)
	case NoRouteMessage:
		// consumed without action
	default:
		d.log().Dropped(m.From(), "unhandled message variant")
	}
}

func (d *Dispatcher) handleUpdate(m UpdateMessage) {
	p, err := prefixFromWire(m.Body.Network, m.Body.Netmask)
	if err != nil {
		d.log().Dropped(m.Src, "malformed update prefix")
		return
	}

	entry := rib.RouteEntry{
		Prefix:     p,
		NextHop:    m.Src,
		LocalPref:  m.Body.LocalPref,
		SelfOrigin: m.Body.SelfOrigin,
		ASPath:     rib.ASPath(m.Body.ASPath),
		Origin:     rib.ParseOrigin(m.Body.Origin),
	}

	d.RIB.Insert(entry)
	d.updateLedger = append(d.updateLedger, m)

	outBody := m.Body
	outBody.ASPath = rib.ASPath(m.Body.ASPath).Prepend(d.ASN)

	set := d.Neighbors.ExportSet(m.Src)
	for _, endpoint := range d.Neighbors.Endpoints(set) {
		out := UpdateMessage{
			Src:  LocalFacing(endpoint),
			Dst:  endpoint,
			Body: outBody,
		}
		if err := d.Send.Send(endpoint, out); err != nil {
			d.log().Dropped(endpoint, err.Error())
		} else {
			d.log().Forwarded(p.String(), endpoint)
		}
	}
}

func (d *Dispatcher) handleRevoke(m RevokeMessage) {
	for _, e := range m.Entries {
		p, err := prefixFromWire(e.Network, e.Netmask)
		if err != nil {
			d.log().Dropped(m.Src, "malformed revoke prefix")
			continue
		}
		d.RIB.Withdraw(p, m.Src)
	}
	d.revokeLedger = append(d.revokeLedger, m)

	set := d.Neighbors.ExportSet(m.Src)
	for _, endpoint := range d.Neighbors.Endpoints(set) {
		out := RevokeMessage{
			Src:     LocalFacing(endpoint),
			Dst:     endpoint,
			Entries: m.Entries,
		}
		if err := d.Send.Send(endpoint, out); err != nil {
			d.log().Dropped(endpoint, err.Error())
		}
	}
}

func (d *Dispatcher) handleData(m DataMessage) {
	dest, err := prefix.ParseDotted(m.Dst)
	if err != nil {
		d.log().Dropped(m.Src, "malformed data destination")
		return
	}

	nextHop, ok := rib.Select(d.RIB.Entries(), dest, m.Src, d.Neighbors.RelationOf())
	if !ok {
		d.log().NoRoute(m.Src, m.Dst)
		reply := NoRouteMessage{Src: LocalFacing(m.Src), Dst: m.Src}
		if err := d.Send.Send(m.Src, reply); err != nil {
			d.log().Dropped(m.Src, err.Error())
		}
		return
	}

	forward := DataMessage{Src: LocalFacing(nextHop), Dst: m.Dst, Payload: m.Payload}
	if err := d.Send.Send(nextHop, forward); err != nil {
		d.log().Dropped(nextHop, err.Error())
		return
	}
	d.log().Forwarded(m.Dst, nextHop)
}

func (d *Dispatcher) handleDump(m DumpMessage) {
	snaps := d.RIB.Snapshot()

	entries := make([]TableEntry, 0, len(snaps))
	for _, s := range snaps {
		network, netmask := prefixToWire(s.Prefix)
		entries = append(entries, TableEntry{Network: network, Netmask: netmask, Peer: s.NextHop})
	}

	reply := TableMessage{Src: LocalFacing(m.Src), Dst: m.Src, Entries: entries}
	if err := d.Send.Send(m.Src, reply); err != nil {
		d.log().Dropped(m.Src, err.Error())
	}
}
