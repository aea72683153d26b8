package orch

import (
	"context"
	"testing"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/dkeye/VoiceClub/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Media_Token_Uses_Room_Role(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockMediaTokenIssuer(ctrl)
	o, _ := newOrchestrator(t)
	o.Tokens = tokens
	ctx := context.Background()
	id := newSession(t, o, true)
	sess, err := o.GetSession(ctx, id)
	req.NoError(err)

	// Given amy is in the room as a listener
	join(t, o, id, "amy", "")

	// When she asks for a speaker token she still cannot publish
	tokens.EXPECT().Issue(ctx, core.MediaGrant{Room: sess.MediaRoom, Identity: "amy", Name: "Amy", CanPublish: false}).
		Return(core.MediaToken{Token: "t-amy", Room: sess.MediaRoom}, nil)
	tok, err := o.IssueMediaToken(ctx, TokenRequest{SessionID: id, UserID: "amy", Username: "Amy", Role: "speaker"})
	req.NoError(err)
	req.Equal("t-amy", tok.Token)

	// A user not yet connected gets the requested role
	tokens.EXPECT().Issue(ctx, core.MediaGrant{Room: sess.MediaRoom, Identity: "bob", Name: "Bob", CanPublish: true}).
		Return(core.MediaToken{Token: "t-bob", Room: sess.MediaRoom}, nil)
	tok, err = o.IssueMediaToken(ctx, TokenRequest{SessionID: id, UserID: "bob", Username: "Bob", Role: "speaker"})
	req.NoError(err)
	req.Equal("t-bob", tok.Token)
}

func Test_Media_Token_Refused_For_Ended_Or_Missing_Session(t *testing.T) {
	req := require.New(t)
	o, _ := newOrchestrator(t)
	ctx := context.Background()
	id := newSession(t, o, true)
	_, err := o.EndSession(ctx, id)
	req.NoError(err)

	_, err = o.IssueMediaToken(ctx, TokenRequest{SessionID: id, UserID: "amy", Username: "Amy"})
	req.ErrorIs(err, domain.ErrSessionEnded)

	_, err = o.IssueMediaToken(ctx, TokenRequest{SessionID: "missing", UserID: "amy", Username: "Amy"})
	req.ErrorIs(err, domain.ErrNotFound)

	_, err = o.IssueMediaToken(ctx, TokenRequest{SessionID: id, UserID: "", Username: "Amy"})
	req.ErrorIs(err, domain.ErrMalformed)
}

func Test_Mock_Issuer_Flags_Mock_Mode(t *testing.T) {
	req := require.New(t)
	o, _ := newOrchestrator(t)
	ctx := context.Background()
	id := newSession(t, o, false)

	tok, err := o.IssueMediaToken(ctx, TokenRequest{SessionID: id, UserID: "amy", Username: "Amy"})
	req.NoError(err)
	req.True(tok.MockMode)
	req.Contains(tok.Token, "mock_")
}
