package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nrc168/bgprouter/internal/logging"
	"github.com/nrc168/bgprouter/internal/policy"
	"github.com/nrc168/bgprouter/internal/rib"
	"github.com/nrc168/bgprouter/internal/router"
	"github.com/nrc168/bgprouter/internal/transport"
)

// pollInterval is the event loop's one suspension point: the bounded
// timeout on waiting for any neighbor to become readable.
const pollInterval = 100 * time.Millisecond

func main() {
	asn, neighbors, socketDir, verbose := parseCommandLineArguments()

	notifier, err := logging.NewZap(verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "router: logging setup:", err)
		os.Exit(1)
	}

	hub := transport.NewHub()
	for _, n := range neighbors {
		if err := hub.Dial(n.Endpoint, n.Ordinal, socketDir); err != nil {
			notifier.ConfigError(err)
		}
	}

	d := &router.Dispatcher{
		ASN:       asn,
		RIB:       &rib.RIB{},
		Neighbors: policy.NewTable(neighbors),
		Send:      hub,
		Log:       notifier,
	}

	runLoop(d, hub, notifier)
}

// runLoop is the single-threaded cooperative event loop: it owns the
// RIB and the neighbor table exclusively and suspends only in Poll. Each
// poll round's events are applied in ascending neighbor-ordinal order,
// all before the next poll; the first neighbor termination anywhere in
// the round ends the loop (and so the process), per the failure
// semantics: a closed or erroring neighbor connection terminates the
// main loop cleanly rather than waiting for every neighbor to go away.
func runLoop(d *router.Dispatcher, hub *transport.Hub, notifier logging.Notifier) {
	for {
		for _, ev := range hub.Poll(pollInterval) {
			switch ev.Kind {
			case transport.EventFrame:
				d.Dispatch(ev.Msg)

			case transport.EventTerminated:
				notifier.Terminated(ev.Neighbor, errString(ev.Err))
				return

			case transport.EventNone:
				// bounded timeout elapsed with nothing ready; go around again
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "EOF"
	}
	return err.Error()
}

func parseCommandLineArguments() (int, []policy.Neighbor, string, bool) {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <asn> <endpoint>-<relation>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "relation is one of: cust, peer, prov\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	socketDir := flag.String("socket-dir", "/tmp/router", "directory containing neighbor seqpacket sockets")
	verbose := flag.Bool("v", false, "verbose logging")

	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	asn, err := strconv.Atoi(args[0])
	if err != nil || asn <= 0 {
		fmt.Fprintln(os.Stderr, "router: asn must be a positive integer")
		os.Exit(1)
	}

	neighbors := make([]policy.Neighbor, 0, len(args)-1)
	for i, spec := range args[1:] {
		endpoint, relation, err := parseNeighborSpec(spec)
		if err != nil {
			fmt.Fprintln(os.Stderr, "router:", err)
			os.Exit(1)
		}
		neighbors = append(neighbors, policy.Neighbor{
			Endpoint: endpoint,
			Ordinal:  uint(i),
			Relation: relation,
		})
	}

	return asn, neighbors, *socketDir, *verbose
}

func parseNeighborSpec(spec string) (string, rib.Relation, error) {
	i := strings.LastIndexByte(spec, '-')
	if i < 0 {
		return "", 0, fmt.Errorf("malformed neighbor spec %q: want <endpoint>-<relation>", spec)
	}

	endpoint, tag := spec[:i], spec[i+1:]

	var relation rib.Relation
	switch tag {
	case "cust":
		relation = rib.Customer
	case "peer":
		relation = rib.Peer
	case "prov":
		relation = rib.Provider
	default:
		return "", 0, fmt.Errorf("malformed neighbor spec %q: relation must be cust, peer or prov", spec)
	}

	return endpoint, relation, nil
}
