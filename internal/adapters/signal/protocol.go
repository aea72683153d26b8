package signal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
)

const MaxEmojiLen = 32

// DecodeCommand parses one inbound frame. Every failure wraps
// domain.ErrMalformed.
func DecodeCommand(data []byte) (core.Command, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}

	switch env.Type {
	case core.CmdChat:
		var c core.ChatCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: chat: %v", domain.ErrMalformed, err)
		}
		if strings.TrimSpace(c.Message) == "" {
			return nil, fmt.Errorf("%w: chat: empty message", domain.ErrMalformed)
		}
		return c, nil
	case core.CmdReaction:
		var c core.ReactionCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: reaction: %v", domain.ErrMalformed, err)
		}
		if c.Emoji == "" || len(c.Emoji) > MaxEmojiLen {
			return nil, fmt.Errorf("%w: reaction: bad emoji", domain.ErrMalformed)
		}
		return c, nil
	case core.CmdHandRaise:
		var c core.HandRaiseCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: hand_raise: %v", domain.ErrMalformed, err)
		}
		if c.Action != core.HandRaise && c.Action != core.HandLower {
			return nil, fmt.Errorf("%w: hand_raise: unknown action %q", domain.ErrMalformed, c.Action)
		}
		return c, nil
	case core.CmdPing:
		return core.PingCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrMalformed, env.Type)
	}
}
