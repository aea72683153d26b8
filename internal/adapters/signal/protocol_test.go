package signal

import (
	"strings"
	"testing"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/stretchr/testify/require"
)

func Test_DecodeCommand_Known_Types(t *testing.T) {
	req := require.New(t)

	cases := map[string]core.Command{
		`{"type":"chat","message":"hello"}`:      core.ChatCommand{Message: "hello"},
		`{"type":"reaction","emoji":"🔥"}`:        core.ReactionCommand{Emoji: "🔥"},
		`{"type":"hand_raise","action":"raise"}`: core.HandRaiseCommand{Action: core.HandRaise},
		`{"type":"hand_raise","action":"lower"}`: core.HandRaiseCommand{Action: core.HandLower},
		`{"type":"ping"}`:                        core.PingCommand{},
	}
	for in, want := range cases {
		got, err := DecodeCommand([]byte(in))
		req.NoError(err, in)
		req.Equal(want, got, in)
	}
}

func Test_DecodeCommand_Rejects_Malformed_Frames(t *testing.T) {
	req := require.New(t)

	bad := []string{
		`not json`,
		`{"type":"dance"}`,
		`{}`,
		`{"type":"chat","message":"   "}`,
		`{"type":"chat","message":42}`,
		`{"type":"reaction","emoji":""}`,
		`{"type":"reaction","emoji":"` + strings.Repeat("x", MaxEmojiLen+1) + `"}`,
		`{"type":"hand_raise","action":"wave"}`,
	}
	for _, in := range bad {
		_, err := DecodeCommand([]byte(in))
		req.ErrorIs(err, domain.ErrMalformed, in)
	}
}

func Test_Close_Reason_For_Join_Errors(t *testing.T) {
	req := require.New(t)

	r := closeReasonFor(domain.ErrSessionEnded)
	req.Equal(core.CloseInvalidState.Code, r.Code)
	req.Equal(domain.ErrSessionEnded.Error(), r.Text)

	r = closeReasonFor(domain.ErrSessionNotFound)
	req.Equal(core.CloseNotParticipant.Code, r.Code)
	req.Equal(core.CloseInvalidState.Code, closeReasonFor(domain.ErrUsernameEmpty).Code)
}
