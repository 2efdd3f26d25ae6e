package advisory

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// Client is a thin typed wrapper over the AdvisoryService RPCs.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) ListPending(ctx context.Context, opts ...grpc.CallOption) ([]entities.Recommendation, error) {
	return c.list(ctx, "ListPending", opts...)
}

func (c *Client) ListDecided(ctx context.Context, opts ...grpc.CallOption) ([]entities.Recommendation, error) {
	return c.list(ctx, "ListDecided", opts...)
}

func (c *Client) Decide(ctx context.Context, id, outcome string, opts ...grpc.CallOption) (entities.Recommendation, error) {
	in, err := structpb.NewStruct(map[string]any{"id": id, "outcome": outcome})
	if err != nil {
		return entities.Recommendation{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Decide", in, out, opts...); err != nil {
		return entities.Recommendation{}, err
	}
	var rec entities.Recommendation
	if err := fromValue(out.AsMap(), &rec); err != nil {
		return entities.Recommendation{}, err
	}
	return rec, nil
}

func (c *Client) list(ctx context.Context, method string, opts ...grpc.CallOption) ([]entities.Recommendation, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	recs := []entities.Recommendation{}
	if err := fromValue(out.AsSlice(), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func fromValue(v any, dst any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
