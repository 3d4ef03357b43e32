// Package grpcapi exposes the resolver over gRPC. Requests and responses are
// google.protobuf.Struct messages, so clients need no generated stubs:
//
//	conn.Invoke(ctx, grpcapi.MethodExpandSequence, req, resp)
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/bufr-resolve/pkg/resolver"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "bufr.resolver.v1.Resolver"

// Full method names for conn.Invoke.
const (
	MethodExpandSequence   = "/" + ServiceName + "/ExpandSequence"
	MethodLookupDescriptor = "/" + ServiceName + "/LookupDescriptor"
	MethodLookupCentre     = "/" + ServiceName + "/LookupCentre"
	MethodListSequences    = "/" + ServiceName + "/ListSequences"
)

// ResolverServer is the server API for the Resolver service.
type ResolverServer interface {
	ExpandSequence(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupDescriptor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupCentre(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSequences(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements the Resolver and Health gRPC services.
type Server struct {
	svc    *resolver.Service
	health *health.Server
	grpc   *grpc.Server
}

// New creates a new gRPC server wrapping the given resolver.
func New(svc *resolver.Service) *Server {
	srv := &Server{
		svc:    svc,
		health: health.NewServer(),
	}

	gs := grpc.NewServer()
	gs.RegisterService(&resolverServiceDesc, srv)
	healthpb.RegisterHealthServer(gs, srv.health)
	srv.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// --- Resolver Service ---

// ExpandSequence takes {"id": "307089", "flat": false} and returns
// {"id", "found", "terminated", "tree"} plus "flat" when requested.
func (s *Server) ExpandSequence(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}
	tree, err := s.svc.Sequence(id)
	if err != nil {
		return nil, statusFromError(err)
	}

	out := map[string]interface{}{
		"id":         id,
		"found":      tree.Found,
		"terminated": tree.Terminated,
		"tree":       tree.Value(),
	}
	if req.GetFields()["flat"].GetBoolValue() {
		flat := tree.Flatten()
		items := make([]interface{}, len(flat))
		for i, tok := range flat {
			items[i] = tok
		}
		out["flat"] = items
	}
	return newStruct(out)
}

// LookupDescriptor takes {"id": "007002"} and returns the element.table row.
func (s *Server) LookupDescriptor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}
	e, ok, err := s.svc.Element(id)
	if err != nil {
		return nil, statusFromError(err)
	}
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Descriptor: %s not found.", id)
	}
	return newStruct(map[string]interface{}{
		"code":         e.Code,
		"abbreviation": e.Abbreviation,
		"type":         e.Type,
		"name":         e.Name,
		"unit":         e.Unit,
		"scale":        e.Scale,
		"reference":    e.Reference,
		"width":        e.Width,
	})
}

// LookupCentre takes {"id": "98"} and returns the centre table row.
func (s *Server) LookupCentre(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}
	c, ok, err := s.svc.Centre(id)
	if err != nil {
		return nil, statusFromError(err)
	}
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Centre ID: %s not found.", id)
	}
	return newStruct(map[string]interface{}{
		"code": c.Code,
		"name": c.Name,
		"line": c.Line,
	})
}

// ListSequences returns {"sequences": [...]} for every block in sequence.def.
func (s *Server) ListSequences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids, err := s.svc.SequenceIDs()
	if err != nil {
		return nil, statusFromError(err)
	}
	items := make([]interface{}, len(ids))
	for i, id := range ids {
		items[i] = id
	}
	return newStruct(map[string]interface{}{"sequences": items})
}

// --- Helpers ---

func requiredID(req *structpb.Struct) (string, error) {
	id := req.GetFields()["id"].GetStringValue()
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "id is required")
	}
	return id, nil
}

func statusFromError(err error) error {
	if errors.Is(err, types.ErrUnavailable) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return st, nil
}
