package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/stage"
)

// AdminService implements the AdminService RPC.
type AdminService struct {
	seq  *sequencer.Sequencer
	card *CardService
}

// NewAdminService creates a new AdminService.
func NewAdminService(seq *sequencer.Sequencer, card *CardService) *AdminService {
	return &AdminService{
		seq:  seq,
		card: card,
	}
}

// ForceStage jumps directly to a stage.
func (s *AdminService) ForceStage(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name, err := stringField(req.Msg, "stage")
	if err != nil {
		return nil, err
	}
	st, err := stage.Parse(name)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("admin: force stage: stage=%s", st)
	return s.card.respond(s.seq.ForceStage(ctx, st))
}

// Reset returns the card to the unlock stage.
func (s *AdminService) Reset(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	zlog.Info().Msg("admin: reset")
	return s.card.respond(s.seq.Reset(ctx))
}
