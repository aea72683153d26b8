package core

// Inbound command types.
const (
	CmdChat      = "chat"
	CmdReaction  = "reaction"
	CmdHandRaise = "hand_raise"
	CmdPing      = "ping"
)

// Command is a decoded client-to-server message.
type Command interface {
	CommandType() string
}

type ChatCommand struct {
	Message string `json:"message"`
}

func (ChatCommand) CommandType() string { return CmdChat }

type ReactionCommand struct {
	Emoji string `json:"emoji"`
}

func (ReactionCommand) CommandType() string { return CmdReaction }

type HandAction string

const (
	HandRaise HandAction = "raise"
	HandLower HandAction = "lower"
)

type HandRaiseCommand struct {
	Action HandAction `json:"action"`
}

func (HandRaiseCommand) CommandType() string { return CmdHandRaise }

type PingCommand struct{}

func (PingCommand) CommandType() string { return CmdPing }
