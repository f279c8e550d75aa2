package connect

import (
	"context"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func call(ctx context.Context, c *connect.Client[structpb.Struct, structpb.Struct], fields map[string]any, header map[string]string) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	req := connect.NewRequest(msg)
	for k, v := range header {
		req.Header().Set(k, v)
	}
	resp, err := c.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetState returns the current card snapshot.
func (c *CardClient) GetState(ctx context.Context) (*structpb.Struct, error) {
	resp, err := c.getState.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Trigger fires a user trigger (e.g. "unlock", "yes", "click_me").
func (c *CardClient) Trigger(ctx context.Context, trigger string) (*structpb.Struct, error) {
	return call(ctx, c.trigger, map[string]any{"trigger": trigger}, nil)
}

// BlowCandle puts out the candle at index.
func (c *CardClient) BlowCandle(ctx context.Context, index int) (*structpb.Struct, error) {
	return call(ctx, c.blowCandle, map[string]any{"index": index}, nil)
}

// SetMusicMode selects a music mode.
func (c *CardClient) SetMusicMode(ctx context.Context, mode string) (*structpb.Struct, error) {
	return call(ctx, c.setMusicMode, map[string]any{"mode": mode}, nil)
}

// Subscribe opens the notification stream.
func (c *CardClient) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[structpb.Struct], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}

// ForceStage jumps the card to a stage.
func (c *AdminClient) ForceStage(ctx context.Context, token, stage string) (*structpb.Struct, error) {
	return call(ctx, c.forceStage, map[string]any{"stage": stage}, map[string]string{AdminTokenHeader: token})
}

// Reset returns the card to the unlock stage.
func (c *AdminClient) Reset(ctx context.Context, token string) (*structpb.Struct, error) {
	req := connect.NewRequest(&emptypb.Empty{})
	req.Header().Set(AdminTokenHeader, token)
	resp, err := c.reset.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
