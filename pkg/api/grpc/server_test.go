package grpcapi

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/bufr-resolve/pkg/config"
	"github.com/lemonberrylabs/bufr-resolve/pkg/resolver"
)

func startTestServer(t *testing.T, table string) (string, func()) {
	t.Helper()
	cfg, err := config.Load(config.Overrides{
		DefinitionPath: filepath.Join("..", "..", "..", "testdata", "wmo"),
		WMOTableNumber: table,
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	srv := New(resolver.New(cfg, nil, nil))

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.grpc.Serve(lis)

	return lis.Addr().String(), func() {
		srv.grpc.Stop()
	}
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, req map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), method, in, out)
	return out, err
}

func TestExpandSequence(t *testing.T) {
	addr, cleanup := startTestServer(t, "37")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	resp, err := invoke(t, conn, MethodExpandSequence, map[string]interface{}{"id": "307089", "flat": true})
	if err != nil {
		t.Fatalf("ExpandSequence: %v", err)
	}
	m := resp.AsMap()
	if m["found"] != true {
		t.Errorf("expected found=true, got %v", m["found"])
	}

	tree, _ := m["tree"].(map[string]interface{})
	members, _ := tree["307089"].([]interface{})
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", tree)
	}
	second, _ := members[1].(map[string]interface{})
	want := []interface{}{
		"101000", "031001",
		map[string]interface{}{"302046": []interface{}{"004024", "004024", "012049"}},
		"201129", "012101", "201000",
	}
	if diff := cmp.Diff(want, second["307088"]); diff != "" {
		t.Errorf("307088 mismatch (-want +got):\n%s", diff)
	}

	flat, _ := m["flat"].([]interface{})
	if len(flat) != 24 {
		t.Errorf("expected 24 flat tokens, got %d: %v", len(flat), flat)
	}
}

func TestExpandSequenceNotFound(t *testing.T) {
	addr, cleanup := startTestServer(t, "37")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	resp, err := invoke(t, conn, MethodExpandSequence, map[string]interface{}{"id": "399999"})
	if err != nil {
		t.Fatalf("ExpandSequence: %v", err)
	}
	m := resp.AsMap()
	if m["found"] != false {
		t.Errorf("expected found=false, got %v", m["found"])
	}
	want := map[string]interface{}{"399999": []interface{}{}}
	if diff := cmp.Diff(want, m["tree"]); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidArgument(t *testing.T) {
	addr, cleanup := startTestServer(t, "37")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	for _, method := range []string{MethodExpandSequence, MethodLookupDescriptor, MethodLookupCentre} {
		_, err := invoke(t, conn, method, map[string]interface{}{})
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%s: expected InvalidArgument, got %v", method, err)
		}
	}
}

func TestLookupDescriptorAndCentre(t *testing.T) {
	addr, cleanup := startTestServer(t, "37")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	resp, err := invoke(t, conn, MethodLookupDescriptor, map[string]interface{}{"id": "007002"})
	if err != nil {
		t.Fatalf("LookupDescriptor: %v", err)
	}
	if got := resp.AsMap()["abbreviation"]; got != "height" {
		t.Errorf("expected abbreviation 'height', got %v", got)
	}

	_, err = invoke(t, conn, MethodLookupDescriptor, map[string]interface{}{"id": "009999"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	resp, err = invoke(t, conn, MethodLookupCentre, map[string]interface{}{"id": "78"})
	if err != nil {
		t.Fatalf("LookupCentre: %v", err)
	}
	if got := resp.AsMap()["name"]; got != "Offenbach (RSMC)" {
		t.Errorf("unexpected centre name %v", got)
	}

	_, err = invoke(t, conn, MethodLookupCentre, map[string]interface{}{"id": "4242"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestListSequences(t *testing.T) {
	addr, cleanup := startTestServer(t, "37")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	resp, err := invoke(t, conn, MethodListSequences, map[string]interface{}{})
	if err != nil {
		t.Fatalf("ListSequences: %v", err)
	}
	ids, _ := resp.AsMap()["sequences"].([]interface{})
	if len(ids) != 11 {
		t.Errorf("expected 11 sequences, got %d", len(ids))
	}
}

func TestMissingTablesFailedPrecondition(t *testing.T) {
	addr, cleanup := startTestServer(t, "99")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	_, err := invoke(t, conn, MethodExpandSequence, map[string]interface{}{"id": "307089"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("expected FailedPrecondition, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	addr, cleanup := startTestServer(t, "37")
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.GetStatus())
	}
}
