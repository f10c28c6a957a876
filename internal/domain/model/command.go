package model

import (
	"encoding/json"
	"fmt"
)

type CommandKind string

const (
	AddContentKind         CommandKind = "AddContent"
	RemoveContentKind      CommandKind = "RemoveContent"
	AddReactionKind        CommandKind = "AddReaction"
	RemoveReactionKind     CommandKind = "RemoveReaction"
	RemoveAllReactionsKind CommandKind = "RemoveAllReactions"
)

// CommandRoutingPrefix prefixes every inbound command routing key: discord.command.{kind}
const CommandRoutingPrefix = "discord.command."

// Commander is a requested outbound platform action.
type Commander interface {
	GetKind() CommandKind
	GetChannelID() Snowflake
	Validate() error
}

// CommandHeader carries the fields common to all commands.
type CommandHeader struct {
	Kind      CommandKind `json:"kind"`
	ChannelID Snowflake   `json:"channelId"`
}

func (h CommandHeader) GetKind() CommandKind    { return h.Kind }
func (h CommandHeader) GetChannelID() Snowflake { return h.ChannelID }

// RoutingKey returns the bus route of a command kind.
func (k CommandKind) RoutingKey() string { return CommandRoutingPrefix + string(k) }

var (
	_ Commander = (*AddContent)(nil)
	_ Commander = (*RemoveContent)(nil)
	_ Commander = (*AddReaction)(nil)
	_ Commander = (*RemoveReaction)(nil)
	_ Commander = (*RemoveAllReactions)(nil)
)

type AddContent struct {
	CommandHeader
	Content string `json:"content"`
}

type RemoveContent struct {
	CommandHeader
	MessageID Snowflake `json:"messageId"`
}

type AddReaction struct {
	CommandHeader
	MessageID Snowflake `json:"messageId"`
	Emote     string    `json:"emote"`
}

type RemoveReaction struct {
	CommandHeader
	MessageID Snowflake `json:"messageId"`
	Emote     string    `json:"emote"`
}

type RemoveAllReactions struct {
	CommandHeader
	MessageID Snowflake `json:"messageId"`
}

func NewAddContent(channelID Snowflake, content string) *AddContent {
	return &AddContent{CommandHeader{AddContentKind, channelID}, content}
}

func NewRemoveContent(channelID, messageID Snowflake) *RemoveContent {
	return &RemoveContent{CommandHeader{RemoveContentKind, channelID}, messageID}
}

func NewAddReaction(channelID, messageID Snowflake, emote string) *AddReaction {
	return &AddReaction{CommandHeader{AddReactionKind, channelID}, messageID, emote}
}

func NewRemoveReaction(channelID, messageID Snowflake, emote string) *RemoveReaction {
	return &RemoveReaction{CommandHeader{RemoveReactionKind, channelID}, messageID, emote}
}

func NewRemoveAllReactions(channelID, messageID Snowflake) *RemoveAllReactions {
	return &RemoveAllReactions{CommandHeader{RemoveAllReactionsKind, channelID}, messageID}
}

func (h CommandHeader) validate() error {
	if h.ChannelID.IsZero() {
		return fmt.Errorf("%w: %s: channelId is required", ErrMalformed, h.Kind)
	}
	return nil
}

func requireMessage(kind CommandKind, id Snowflake) error {
	if id.IsZero() {
		return fmt.Errorf("%w: %s: messageId is required", ErrMalformed, kind)
	}
	return nil
}

func requireEmote(kind CommandKind, emote string) error {
	if emote == "" {
		return fmt.Errorf("%w: %s: emote is required", ErrMalformed, kind)
	}
	return nil
}

func (c *AddContent) Validate() error { return c.validate() }

func (c *RemoveContent) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	return requireMessage(c.Kind, c.MessageID)
}

func (c *AddReaction) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := requireMessage(c.Kind, c.MessageID); err != nil {
		return err
	}
	return requireEmote(c.Kind, c.Emote)
}

func (c *RemoveReaction) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := requireMessage(c.Kind, c.MessageID); err != nil {
		return err
	}
	return requireEmote(c.Kind, c.Emote)
}

func (c *RemoveAllReactions) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	return requireMessage(c.Kind, c.MessageID)
}

// EncodeCommand serializes a command for the pending queue or the bus.
func EncodeCommand(cmd Commander) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("encode command: nil command")
	}
	return json.Marshal(cmd)
}

// DecodeCommand decodes a minimal envelope holding only the discriminator,
// then the concrete variant it names. The result is validated.
func DecodeCommand(data []byte) (Commander, error) {
	var env struct {
		Kind CommandKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: command envelope: %v", ErrMalformed, err)
	}

	var cmd Commander
	switch env.Kind {
	case AddContentKind:
		cmd = new(AddContent)
	case RemoveContentKind:
		cmd = new(RemoveContent)
	case AddReactionKind:
		cmd = new(AddReaction)
	case RemoveReactionKind:
		cmd = new(RemoveReaction)
	case RemoveAllReactionsKind:
		cmd = new(RemoveAllReactions)
	default:
		return nil, fmt.Errorf("%w: command %q", ErrUnknownKind, env.Kind)
	}

	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("%w: command %s: %v", ErrMalformed, env.Kind, err)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}
