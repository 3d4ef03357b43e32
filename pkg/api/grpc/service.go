package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// resolverServiceDesc is written out by hand in the shape protoc-gen-go-grpc
// produces; every message is a structpb.Struct.
var resolverServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ResolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExpandSequence", Handler: unaryHandler(MethodExpandSequence, ResolverServer.ExpandSequence)},
		{MethodName: "LookupDescriptor", Handler: unaryHandler(MethodLookupDescriptor, ResolverServer.LookupDescriptor)},
		{MethodName: "LookupCentre", Handler: unaryHandler(MethodLookupCentre, ResolverServer.LookupCentre)},
		{MethodName: "ListSequences", Handler: unaryHandler(MethodListSequences, ResolverServer.ListSequences)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bufr/resolver/v1/resolver.proto",
}

type structMethod func(ResolverServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ResolverServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ResolverServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
