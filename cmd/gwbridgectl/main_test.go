package main

import (
	"testing"

	"github.com/gwnexus/bridge/internal/wire"
)

func TestBuildRequestHeartbeatStampsClientTimestamp(t *testing.T) {
	req, err := buildRequest("heartbeat", nil)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Kind != wire.KindHeartbeat {
		t.Fatalf("Kind = %v, want Heartbeat", req.Kind)
	}
	if req.ClientTimestamp == 0 {
		t.Fatal("ClientTimestamp was not stamped")
	}
}

func TestBuildRequestListFunctions(t *testing.T) {
	req, err := buildRequest("list-functions", nil)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Kind != wire.KindListFunctions {
		t.Fatalf("Kind = %v, want ListFunctions", req.Kind)
	}
}

func TestBuildRequestCallFunctionRequiresName(t *testing.T) {
	if _, err := buildRequest("call-function", nil); err == nil {
		t.Fatal("expected error for missing function name")
	}
	req, err := buildRequest("call-function", []string{"Update"})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Kind != wire.KindCallFunction || req.Name != "Update" {
		t.Fatalf("req = %+v", req)
	}
}

func TestBuildRequestFreeParsesAddress(t *testing.T) {
	req, err := buildRequest("free", []string{"0x401000"})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Kind != wire.KindFree || req.Address != 0x401000 {
		t.Fatalf("req = %+v", req)
	}
}

func TestBuildRequestFreeRejectsBadAddress(t *testing.T) {
	if _, err := buildRequest("free", []string{"not-an-address"}); err == nil {
		t.Fatal("expected error for malformed address")
	}
}

func TestBuildRequestUnknownCommandIsRejected(t *testing.T) {
	if _, err := buildRequest("bogus", nil); err == nil {
		t.Fatal("expected error for unrecognized command")
	}
}

func TestRunReportsUsageErrorWithoutEnoughArgs(t *testing.T) {
	if code := run([]string{"pipe-only"}); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}
