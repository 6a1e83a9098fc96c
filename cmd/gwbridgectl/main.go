// Command gwbridgectl is a manual-test controller for a running bridge
// instance: it dials the bridge's named pipe directly and issues one
// request, printing the decoded response. It exists for development and
// smoke-testing, the same role the teacher's mcpx CLI plays for its own
// daemon, reduced to a single-shot dial since the bridge's protocol is
// request/response rather than a persistent session.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gwnexus/bridge/internal/transport"
	"github.com/gwnexus/bridge/internal/wire"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		printUsage()
		return 2
	}

	pipeName := args[0]
	command := args[1]

	req, err := buildRequest(command, args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "gwbridgectl: %v\n", err)
		return 1
	}

	resp, err := send(pipeName, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gwbridgectl: %v\n", err)
		return 1
	}

	printResponse(command, resp)
	if !resp.Success {
		return 1
	}
	return 0
}

func buildRequest(command string, rest []string) (*wire.Request, error) {
	switch command {
	case "heartbeat":
		return &wire.Request{Kind: wire.KindHeartbeat, ClientTimestamp: uint64(time.Now().UnixMilli())}, nil
	case "list-functions":
		return &wire.Request{Kind: wire.KindListFunctions}, nil
	case "server-status":
		return &wire.Request{Kind: wire.KindServerStatus}, nil
	case "loader-status":
		return &wire.Request{Kind: wire.KindLoaderStatus}, nil
	case "loader-detach":
		return &wire.Request{Kind: wire.KindLoaderDetach}, nil
	case "call-function":
		if len(rest) < 1 {
			return nil, fmt.Errorf("call-function requires a function name")
		}
		return &wire.Request{Kind: wire.KindCallFunction, Name: rest[0]}, nil
	case "unregister-function":
		if len(rest) < 1 {
			return nil, fmt.Errorf("unregister-function requires a function name")
		}
		return &wire.Request{Kind: wire.KindUnregisterFunction, Name: rest[0]}, nil
	case "free":
		if len(rest) < 1 {
			return nil, fmt.Errorf("free requires an address")
		}
		addr, err := parseAddress(rest[0])
		if err != nil {
			return nil, err
		}
		return &wire.Request{Kind: wire.KindFree, Address: addr}, nil
	default:
		return nil, fmt.Errorf("unrecognized command %q", command)
	}
}

func parseAddress(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func send(pipeName string, req *wire.Request) (*wire.Response, error) {
	conn, err := transport.DialClient(pipeName)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", pipeName, err)
	}
	defer conn.Close()

	out, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	if _, err := conn.Write(out); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	buf := make([]byte, wire.ResponseFrameSize)
	if _, err := readFull(conn, buf); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return wire.DecodeResponse(buf)
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func printResponse(command string, resp *wire.Response) {
	if !resp.Success {
		fmt.Printf("%s: error: %s\n", command, resp.ErrorMessage)
		return
	}
	switch command {
	case "heartbeat":
		fmt.Printf("heartbeat: server=%d latency=%d\n", resp.HeartbeatServerTimestamp, resp.HeartbeatLatency)
	case "list-functions":
		fmt.Printf("list-functions: %d registered\n", resp.FuncCount)
		for i := uint32(0); i < resp.FuncCount; i++ {
			fmt.Printf("  %s\n", resp.FuncNames[i])
		}
	case "server-status":
		fmt.Printf("server-status: pipe=%s clients=%d uptime_ms=%d requests=%d faults=%d timeouts=%d detours=%d dropped=%d\n",
			resp.StatusPipeName, resp.StatusClientCount, resp.StatusUptimeMS, resp.StatusRequests,
			resp.StatusFaults, resp.StatusTimeouts, resp.StatusDetours, resp.StatusDropped)
	case "loader-status":
		fmt.Printf("loader-status: state=%d\n", resp.LoaderState)
	default:
		fmt.Printf("%s: ok\n", command)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: gwbridgectl <pipe-name> <command> [args...]")
	fmt.Fprintln(os.Stderr, "commands: heartbeat, list-functions, server-status, loader-status, loader-detach, call-function <name>, unregister-function <name>, free <address>")
}
