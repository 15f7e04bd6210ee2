package transport

import (
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"time"

	"github.com/nrc168/bgprouter/internal/router"
)

// EventKind distinguishes what a Poll call returned.
type EventKind int

const (
	// EventNone means the poll timeout elapsed with nothing ready.
	EventNone EventKind = iota
	// EventFrame carries a decoded inbound Message from a neighbor.
	EventFrame
	// EventTerminated means a neighbor's connection closed or errored on
	// receive; per the failure semantics this is the caller's signal to
	// end the main loop.
	EventTerminated
)

// Event is one occurrence within a Poll batch.
type Event struct {
	Kind     EventKind
	Neighbor string
	Ordinal  uint
	Msg      router.Message
	Err      error
}

// Hub is the concrete NeighborIO: it owns one connection per configured
// neighbor and fans their inbound frames into a single poll point, the
// one suspension point the single-threaded event loop is allowed.
type Hub struct {
	conns map[string]*neighborConn

	frames chan frameEvent
	exits  chan exitEvent
}

type frameEvent struct {
	endpoint string
	ordinal  uint
	msg      router.Message
}

type exitEvent struct {
	endpoint string
	ordinal  uint
	err      error
}

// NewHub builds an empty Hub. Neighbors are added with Dial or Adopt
// before the event loop starts polling.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*neighborConn),
		frames: make(chan frameEvent, 64),
		exits:  make(chan exitEvent, 64),
	}
}

// SocketPath is the naming convention for a neighbor's seqpacket socket
// within dir: the endpoint string plus a .sock suffix.
func SocketPath(dir, endpoint string) string {
	return filepath.Join(dir, endpoint+".sock")
}

// Dial connects to a neighbor's seqpacket socket and starts its
// reader/writer goroutines. ordinal is the neighbor's registration
// ordinal (its position in the configured neighbor list), used to order
// a poll batch deterministically.
func (h *Hub) Dial(endpoint string, ordinal uint, socketDir string) error {
	c, err := dialNeighbor(endpoint, ordinal, SocketPath(socketDir, endpoint))
	if err != nil {
		return err
	}
	h.adopt(c)
	return nil
}

// Adopt wires an already-established net.Conn in as a neighbor. Tests
// use this with net.Pipe to exercise the reader/writer plumbing without
// a real socket.
func (h *Hub) Adopt(endpoint string, ordinal uint, c net.Conn) {
	h.adopt(newNeighborConn(endpoint, ordinal, c))
}

func (h *Hub) adopt(c *neighborConn) {
	h.conns[c.endpoint] = c
	go c.writer()
	go c.reader(
		func(endpoint string, m router.Message) {
			h.frames <- frameEvent{endpoint: endpoint, ordinal: c.ordinal, msg: m}
		},
		func(endpoint string, err error) {
			h.exits <- exitEvent{endpoint: endpoint, ordinal: c.ordinal, err: err}
		},
	)
}

// Send implements router.Sender: encode m and enqueue it for endpoint's
// writer goroutine.
func (h *Hub) Send(endpoint string, m router.Message) error {
	c, ok := h.conns[endpoint]
	if !ok {
		return fmt.Errorf("transport: unknown neighbor %q", endpoint)
	}
	raw, err := router.Encode(m)
	if err != nil {
		return err
	}
	return c.send(raw)
}

// Poll waits up to timeout for the first frame or neighbor termination,
// then drains every other event already waiting across every adopted
// connection, without blocking further. The whole batch is returned
// stably sorted by ascending neighbor ordinal (each neighbor's own events
// keep their arrival order), so a caller that applies state
// changes in the returned order gets a deterministic, ordinal-ordered
// view of one poll round's readiness, as required of the single
// suspension point this event loop is allowed. A batch of length 1 with
// Kind EventNone means the timeout elapsed with nothing ready.
func (h *Hub) Poll(timeout time.Duration) []Event {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var events []Event

	select {
	case f := <-h.frames:
		events = append(events, Event{Kind: EventFrame, Neighbor: f.endpoint, Ordinal: f.ordinal, Msg: f.msg})
	case e := <-h.exits:
		h.terminate(e.endpoint)
		events = append(events, Event{Kind: EventTerminated, Neighbor: e.endpoint, Ordinal: e.ordinal, Err: e.err})
	case <-timer.C:
		return []Event{{Kind: EventNone}}
	}

drain:
	for {
		select {
		case f := <-h.frames:
			events = append(events, Event{Kind: EventFrame, Neighbor: f.endpoint, Ordinal: f.ordinal, Msg: f.msg})
		case e := <-h.exits:
			h.terminate(e.endpoint)
			events = append(events, Event{Kind: EventTerminated, Neighbor: e.endpoint, Ordinal: e.ordinal, Err: e.err})
		default:
			break drain
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Ordinal < events[j].Ordinal })
	return events
}

func (h *Hub) terminate(endpoint string) {
	if c, ok := h.conns[endpoint]; ok {
		c.close()
		delete(h.conns, endpoint)
	}
}

// CloseAll tears down every neighbor connection.
func (h *Hub) CloseAll() {
	for endpoint := range h.conns {
		h.terminate(endpoint)
	}
}

// Live reports whether any neighbor connection remains open.
func (h *Hub) Live() bool {
	return len(h.conns) > 0
}
