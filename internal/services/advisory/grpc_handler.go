package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/hydroponics/internal/advisor"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

const ServiceName = "hydroponics.advisory.v1.AdvisoryService"

// AdvisoryServer carries recommendations as google.protobuf.Struct values
// with the same field names as the JSON API.
type AdvisoryServer interface {
	ListPending(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ListDecided(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// Decide expects {"id": "...", "outcome": "approve|reject"}.
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var AdvisoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdvisoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPending", Handler: listPendingHandler},
		{MethodName: "ListDecided", Handler: listDecidedHandler},
		{MethodName: "Decide", Handler: decideHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hydroponics/advisory/v1/advisory.proto",
}

func RegisterAdvisoryServer(s grpc.ServiceRegistrar, srv AdvisoryServer) {
	s.RegisterService(&AdvisoryServiceDesc, srv)
}

func listPendingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisoryServer).ListPending(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListPending"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisoryServer).ListPending(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listDecidedHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisoryServer).ListDecided(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListDecided"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisoryServer).ListDecided(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisoryServer).Decide(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Decide"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisoryServer).Decide(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GrpcHandler implementa AdvisoryService sopra l'aggregatore.
type GrpcHandler struct {
	decider Decider
	log     zerolog.Logger
}

var _ AdvisoryServer = (*GrpcHandler)(nil)

func NewGrpcHandler(d Decider, logger zerolog.Logger) *GrpcHandler {
	return &GrpcHandler{decider: d, log: logger}
}

// ============== RPC: ListPending ==============

func (h *GrpcHandler) ListPending(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return toList(h.decider.Pending())
}

// ============== RPC: ListDecided ==============

func (h *GrpcHandler) ListDecided(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return toList(h.decider.Decided())
}

// ============== RPC: Decide ==============

func (h *GrpcHandler) Decide(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	id := strings.TrimSpace(fields["id"].GetStringValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	outcome, ok := entities.ParseOutcome(fields["outcome"].GetStringValue())
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "outcome must be approve or reject, got %q", fields["outcome"].GetStringValue())
	}

	rec, err := h.decider.Decide(id, outcome)
	if err != nil {
		return nil, toStatus(err)
	}
	h.log.Info().Str("id", rec.ID).Str("status", string(rec.Status)).Msg("advisory: decision applied from grpc")
	return toStruct(rec)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, advisor.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, advisor.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func toMap(r entities.Recommendation) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func toStruct(r entities.Recommendation) (*structpb.Struct, error) {
	m, err := toMap(r)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func toList(recs []entities.Recommendation) (*structpb.ListValue, error) {
	items := make([]any, 0, len(recs))
	for _, r := range recs {
		m, err := toMap(r)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		items = append(items, m)
	}
	l, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return l, nil
}
