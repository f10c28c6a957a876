package model

import (
	"encoding/json"
	"fmt"
)

type EventKind string

const (
	ContentReceivedKind EventKind = "ContentReceived"
	ContentUpdatedKind  EventKind = "ContentUpdated"
	ContentDeletedKind  EventKind = "ContentDeleted"
	ReactionAddedKind   EventKind = "ReactionAdded"
	ReactionRemovedKind EventKind = "ReactionRemoved"
	UserUpdatedKind     EventKind = "UserUpdated"
	ConnectedKind       EventKind = "Connected"
	DisconnectedKind    EventKind = "Disconnected"
)

// EventRoutingPrefix prefixes every outbound routing key: discord.event.{kind}
const EventRoutingPrefix = "discord.event."

// Eventer is the contract of every canonical platform event.
type Eventer interface {
	GetKind() EventKind
	// GetTimestamp is the logical capture time and the archive sort key.
	GetTimestamp() int64
	GetRoutingKey() string
}

// EventHeader carries the fields common to all variants.
// Timestamp is assigned once at capture and never mutated.
type EventHeader struct {
	Kind      EventKind `json:"kind"`
	Timestamp int64     `json:"timestamp"`
}

func (h EventHeader) GetKind() EventKind    { return h.Kind }
func (h EventHeader) GetTimestamp() int64   { return h.Timestamp }
func (h EventHeader) GetRoutingKey() string { return EventRoutingPrefix + string(h.Kind) }

// [GUARDS]
var (
	_ Eventer = (*ContentReceived)(nil)
	_ Eventer = (*ContentUpdated)(nil)
	_ Eventer = (*ContentDeleted)(nil)
	_ Eventer = (*ReactionAdded)(nil)
	_ Eventer = (*ReactionRemoved)(nil)
	_ Eventer = (*UserUpdated)(nil)
	_ Eventer = (*Connected)(nil)
	_ Eventer = (*Disconnected)(nil)
)

type ContentReceived struct {
	EventHeader
	MessageID     Snowflake   `json:"messageId"`
	Channel       NamedEntity `json:"channel"`
	Author        NamedEntity `json:"author"`
	Content       string      `json:"content"`
	AttachmentURI *string     `json:"attachmentUri"`
}

type ContentUpdated struct {
	EventHeader
	MessageID      Snowflake   `json:"messageId"`
	// PriorMessageID is the identifier of the message before the edit, when known.
	PriorMessageID *Snowflake  `json:"priorMessageId"`
	Channel        NamedEntity `json:"channel"`
	Author         NamedEntity `json:"author"`
	Content        string      `json:"content"`
	AttachmentURI  *string     `json:"attachmentUri"`
}

type ContentDeleted struct {
	EventHeader
	MessageID Snowflake   `json:"messageId"`
	Channel   NamedEntity `json:"channel"`
}

type ReactionAdded struct {
	EventHeader
	MessageID Snowflake   `json:"messageId"`
	Channel   NamedEntity `json:"channel"`
	Emote     string      `json:"emote"`
}

type ReactionRemoved struct {
	EventHeader
	MessageID Snowflake   `json:"messageId"`
	Channel   NamedEntity `json:"channel"`
	Emote     string      `json:"emote"`
}

type UserUpdated struct {
	EventHeader
	Guild    NamedEntity `json:"guild"`
	User     NamedEntity `json:"user"`
	Status   string      `json:"status"`
	Activity Activity    `json:"activity"`
}

type Connected struct {
	EventHeader
}

type Disconnected struct {
	EventHeader
	Reason *string `json:"reason"`
}

// EncodeEvent serializes an event for the archive and the bus.
func EncodeEvent(ev Eventer) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode event: nil event")
	}
	return json.Marshal(ev)
}

// DecodeEvent reads the discriminator first and then decodes the concrete variant.
func DecodeEvent(data []byte) (Eventer, error) {
	var env struct {
		Kind EventKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: event envelope: %v", ErrMalformed, err)
	}

	var ev Eventer
	switch env.Kind {
	case ContentReceivedKind:
		ev = new(ContentReceived)
	case ContentUpdatedKind:
		ev = new(ContentUpdated)
	case ContentDeletedKind:
		ev = new(ContentDeleted)
	case ReactionAddedKind:
		ev = new(ReactionAdded)
	case ReactionRemovedKind:
		ev = new(ReactionRemoved)
	case UserUpdatedKind:
		ev = new(UserUpdated)
	case ConnectedKind:
		ev = new(Connected)
	case DisconnectedKind:
		ev = new(Disconnected)
	default:
		return nil, fmt.Errorf("%w: event %q", ErrUnknownKind, env.Kind)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: event %s: %v", ErrMalformed, env.Kind, err)
	}
	return ev, nil
}
