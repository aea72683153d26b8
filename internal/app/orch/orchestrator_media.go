package orch

import (
	"context"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/rs/zerolog/log"
)

type TokenRequest struct {
	SessionID domain.SessionID
	UserID    string
	Username  string
	Role      string
}

// IssueMediaToken mints media-room credentials. A user already in the room
// gets the role the room assigned, which may differ from the requested one.
func (o *Orchestrator) IssueMediaToken(ctx context.Context, req TokenRequest) (core.MediaToken, error) {
	user, err := domain.NewUser(req.UserID, req.Username)
	if err != nil {
		return core.MediaToken{}, err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return core.MediaToken{}, err
	}
	sess, err := o.Registry.Get(ctx, req.SessionID)
	if err != nil {
		return core.MediaToken{}, err
	}
	if !sess.Status.AcceptsConnections() {
		return core.MediaToken{}, domain.ErrSessionEnded
	}
	if room, ok := o.Rooms.Get(sess.ID); ok {
		_, _ = room.Update(func(tx *core.Tx) error {
			if ms, ok := tx.Member(user.ID); ok {
				role = ms.Meta().Role
			}
			return nil
		})
	}
	tok, err := o.Tokens.Issue(ctx, core.MediaGrant{
		Room:       sess.MediaRoom,
		Identity:   user.ID,
		Name:       user.Username,
		CanPublish: role == domain.RoleSpeaker,
	})
	if err != nil {
		return core.MediaToken{}, err
	}
	log.Info().Str("module", "orch").Str("session", string(sess.ID)).Str("user", string(user.ID)).
		Bool("mock", tok.MockMode).Msg("media token issued")
	return tok, nil
}
