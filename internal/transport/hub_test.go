package transport

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/nrc168/bgprouter/internal/router"
)

// pipeNeighbor wires a net.Pipe into a Hub and returns the far end, the
// side a test plays the role of "the neighbor" on.
func pipeNeighbor(t *testing.T, h *Hub, endpoint string, ordinal uint) net.Conn {
	t.Helper()
	local, remote := net.Pipe()
	h.Adopt(endpoint, ordinal, local)
	return remote
}

func TestSendEncodesAndWritesFrame(t *testing.T) {
	h := NewHub()
	remote := pipeNeighbor(t, h, "A", 0)
	defer remote.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4096)
		n, err := remote.Read(buf)
		if err != nil {
			t.Errorf("remote read: %v", err)
			return
		}
		done <- buf[:n]
	}()

	msg := router.DumpMessage{Src: "192.168.0.1", Dst: "192.168.0.2"}
	if err := h.Send("A", msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case raw := <-done:
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if env.Type != "dump" {
			t.Errorf("type = %q, want dump", env.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame on the wire")
	}
}

func TestSendUnknownNeighborErrors(t *testing.T) {
	h := NewHub()
	if err := h.Send("ghost", router.DumpMessage{}); err == nil {
		t.Fatal("expected an error sending to an unknown neighbor")
	}
}

func TestPollDeliversInboundFrame(t *testing.T) {
	h := NewHub()
	remote := pipeNeighbor(t, h, "A", 0)
	defer remote.Close()

	frame := []byte(`{"src":"192.168.0.2","dst":"192.168.0.1","type":"dump","msg":{}}`)
	go remote.Write(frame)

	events := h.Poll(time.Second)
	if len(events) != 1 {
		t.Fatalf("expected a single-event batch, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != EventFrame {
		t.Fatalf("expected EventFrame, got %v (err=%v)", ev.Kind, ev.Err)
	}
	if ev.Neighbor != "A" {
		t.Errorf("neighbor = %q, want A", ev.Neighbor)
	}
	if _, ok := ev.Msg.(router.DumpMessage); !ok {
		t.Errorf("expected DumpMessage, got %T", ev.Msg)
	}
}

func TestPollTimesOutWithNothingReady(t *testing.T) {
	h := NewHub()
	pipeNeighbor(t, h, "A", 0)

	events := h.Poll(20 * time.Millisecond)
	if len(events) != 1 || events[0].Kind != EventNone {
		t.Fatalf("expected a single EventNone, got %v", events)
	}
}

func TestPollReportsTerminationOnClose(t *testing.T) {
	h := NewHub()
	remote := pipeNeighbor(t, h, "A", 0)
	remote.Close()

	events := h.Poll(time.Second)
	if len(events) != 1 {
		t.Fatalf("expected a single-event batch, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != EventTerminated {
		t.Fatalf("expected EventTerminated, got %v", ev.Kind)
	}
	if ev.Neighbor != "A" {
		t.Errorf("neighbor = %q, want A", ev.Neighbor)
	}
	if h.Live() {
		t.Errorf("expected Hub to have no live neighbors after termination")
	}
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	h := NewHub()
	remote := pipeNeighbor(t, h, "A", 0)
	defer remote.Close()

	go remote.Write([]byte(`{not json`))
	go func() {
		time.Sleep(20 * time.Millisecond)
		remote.Write([]byte(`{"src":"192.168.0.2","dst":"192.168.0.1","type":"dump","msg":{}}`))
	}()

	events := h.Poll(2 * time.Second)
	if len(events) != 1 || events[0].Kind != EventFrame {
		t.Fatalf("expected the well-formed frame to survive the malformed one, got %v", events)
	}
}

func TestPollBatchesAndOrdersByOrdinal(t *testing.T) {
	h := NewHub()
	remoteHigh := pipeNeighbor(t, h, "high", 2)
	defer remoteHigh.Close()
	remoteLow := pipeNeighbor(t, h, "low", 0)
	defer remoteLow.Close()

	frame := []byte(`{"src":"192.168.0.2","dst":"192.168.0.1","type":"dump","msg":{}}`)

	// Write from the higher-ordinal neighbor first, then the lower one,
	// and give both writes time to land on the Hub's frames channel
	// before the single Poll call below drains them as one batch.
	go remoteHigh.Write(frame)
	go func() {
		time.Sleep(10 * time.Millisecond)
		remoteLow.Write(frame)
	}()
	time.Sleep(50 * time.Millisecond)

	events := h.Poll(time.Second)
	if len(events) != 2 {
		t.Fatalf("expected both ready frames in one batch, got %d", len(events))
	}
	if events[0].Neighbor != "low" || events[1].Neighbor != "high" {
		t.Fatalf("expected batch ordered by ascending ordinal (low, high), got (%s, %s)", events[0].Neighbor, events[1].Neighbor)
	}
}
