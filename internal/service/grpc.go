package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
const (
	serviceName  = "argdec.v1.DecoderService"
	decodeMethod = "/" + serviceName + "/Decode"
)

// DecoderServiceServer is the server side of the decode RPC. Requests and
// responses are google.protobuf.Struct messages holding the JSON record form.
type DecoderServiceServer interface {
	Decode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DecoderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decode", Handler: decodeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "argdec/v1/decoder.proto",
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv DecoderServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func decodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DecoderServiceServer).Decode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decodeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DecoderServiceServer).Decode(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
