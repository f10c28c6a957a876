// Package capture maps raw gateway payloads onto canonical events.
//
// Every mapper is a pure function of its input, the Lookup and the clock:
// it never touches the network and never fails. Unknown parts of the payload
// become absent fields rather than errors.
package capture

import (
	"github.com/bwmarrin/discordgo"

	"github.com/webitel/im-discord-relay/internal/domain/clock"
	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// Lookup answers name and presence questions from the gateway's local state.
type Lookup interface {
	ChannelName(channelID string) (string, bool)
	GuildName(guildID string) (string, bool)
	Presence(guildID, userID string) (*discordgo.Presence, bool)
}

type Mapper struct {
	clock  *clock.Clock
	lookup Lookup
}

func NewMapper(clk *clock.Clock, lookup Lookup) *Mapper {
	return &Mapper{clock: clk, lookup: lookup}
}

func (m *Mapper) header(kind model.EventKind) model.EventHeader {
	return model.EventHeader{Kind: kind, Timestamp: m.clock.Tick()}
}

func (m *Mapper) Connected() *model.Connected {
	return &model.Connected{EventHeader: m.header(model.ConnectedKind)}
}

// Disconnected carries the transport error, when the gateway reported one.
func (m *Mapper) Disconnected(cause error) *model.Disconnected {
	ev := &model.Disconnected{EventHeader: m.header(model.DisconnectedKind)}
	if cause != nil {
		ev.Reason = model.StringPtr(cause.Error())
	}
	return ev
}

func (m *Mapper) ContentReceived(msg *discordgo.Message) *model.ContentReceived {
	return &model.ContentReceived{
		EventHeader:   m.header(model.ContentReceivedKind),
		MessageID:     snowflake(msg.ID),
		Channel:       m.channel(msg.ChannelID),
		Author:        author(msg.Author),
		Content:       msg.Content,
		AttachmentURI: firstAttachment(msg.Attachments),
	}
}

// ContentUpdated uses the cached pre-edit message when the gateway state had it.
func (m *Mapper) ContentUpdated(msg *discordgo.Message, before *discordgo.Message) *model.ContentUpdated {
	ev := &model.ContentUpdated{
		EventHeader:   m.header(model.ContentUpdatedKind),
		MessageID:     snowflake(msg.ID),
		Channel:       m.channel(msg.ChannelID),
		Author:        author(msg.Author),
		Content:       msg.Content,
		AttachmentURI: firstAttachment(msg.Attachments),
	}
	if before != nil {
		ev.PriorMessageID = model.SnowflakePtr(before.ID)
		if ev.Author.IsUnknown() {
			ev.Author = author(before.Author)
		}
	}
	return ev
}

func (m *Mapper) ContentDeleted(msg *discordgo.Message) *model.ContentDeleted {
	return &model.ContentDeleted{
		EventHeader: m.header(model.ContentDeletedKind),
		MessageID:   snowflake(msg.ID),
		Channel:     m.channel(msg.ChannelID),
	}
}

func (m *Mapper) ReactionAdded(r *discordgo.MessageReaction) *model.ReactionAdded {
	return &model.ReactionAdded{
		EventHeader: m.header(model.ReactionAddedKind),
		MessageID:   snowflake(r.MessageID),
		Channel:     m.channel(r.ChannelID),
		Emote:       r.Emoji.Name,
	}
}

func (m *Mapper) ReactionRemoved(r *discordgo.MessageReaction) *model.ReactionRemoved {
	return &model.ReactionRemoved{
		EventHeader: m.header(model.ReactionRemovedKind),
		MessageID:   snowflake(r.MessageID),
		Channel:     m.channel(r.ChannelID),
		Emote:       r.Emoji.Name,
	}
}

// UserUpdated covers account-level changes outside any guild. Status and
// activity come from the last presence the gateway saw for the user.
func (m *Mapper) UserUpdated(u *discordgo.User) *model.UserUpdated {
	ev := &model.UserUpdated{
		EventHeader: m.header(model.UserUpdatedKind),
		User:        author(u),
	}
	if u != nil {
		if p, ok := m.lookup.Presence("", u.ID); ok {
			ev.Status, ev.Activity = string(p.Status), activity(p.Activities)
		}
	}
	return ev
}

// PresenceUpdated reports a status or activity change of a guild member.
func (m *Mapper) PresenceUpdated(guildID string, p *discordgo.Presence) *model.UserUpdated {
	ev := &model.UserUpdated{
		EventHeader: m.header(model.UserUpdatedKind),
		Guild:       m.guild(guildID),
	}
	if p != nil {
		ev.User = author(p.User)
		ev.Status = string(p.Status)
		ev.Activity = activity(p.Activities)
	}
	return ev
}

// MemberUpdated reports a guild member change (nickname, roles) together with
// the member's current presence.
func (m *Mapper) MemberUpdated(member *discordgo.Member) *model.UserUpdated {
	if member == nil {
		return &model.UserUpdated{EventHeader: m.header(model.UserUpdatedKind)}
	}

	ev := &model.UserUpdated{
		EventHeader: m.header(model.UserUpdatedKind),
		Guild:       m.guild(member.GuildID),
		User:        author(member.User),
	}
	if member.User != nil {
		if p, ok := m.lookup.Presence(member.GuildID, member.User.ID); ok {
			ev.Status, ev.Activity = string(p.Status), activity(p.Activities)
		}
	}
	return ev
}

func (m *Mapper) channel(id string) model.NamedEntity {
	e := model.NamedEntity{ID: model.SnowflakePtr(id)}
	if name, ok := m.lookup.ChannelName(id); ok {
		e.Name = model.StringPtr(name)
	}
	return e
}

// guild is unknown for direct-message contexts, where the id is empty.
func (m *Mapper) guild(id string) model.NamedEntity {
	if id == "" {
		return model.NamedEntity{}
	}
	e := model.NamedEntity{ID: model.SnowflakePtr(id)}
	if name, ok := m.lookup.GuildName(id); ok {
		e.Name = model.StringPtr(name)
	}
	return e
}

func author(u *discordgo.User) model.NamedEntity {
	if u == nil {
		return model.NamedEntity{}
	}
	return model.NamedEntity{ID: model.SnowflakePtr(u.ID), Name: model.StringPtr(u.Username)}
}

func snowflake(id string) model.Snowflake {
	if p := model.SnowflakePtr(id); p != nil {
		return *p
	}
	return 0
}

func firstAttachment(atts []*discordgo.MessageAttachment) *string {
	for _, a := range atts {
		if a != nil && a.URL != "" {
			return model.StringPtr(a.URL)
		}
	}
	return nil
}

// activity picks the first listed activity; the rest are dropped.
func activity(acts []*discordgo.Activity) model.Activity {
	for _, a := range acts {
		if a == nil {
			continue
		}
		return model.Activity{
			Name:    model.StringPtr(a.Name),
			Type:    model.StringPtr(ActivityTypeName(a.Type)),
			Details: model.StringPtr(a.Details),
		}
	}
	return model.Activity{}
}

// ActivityTypeName renders the gateway activity type as a stable label.
func ActivityTypeName(t discordgo.ActivityType) string {
	switch t {
	case discordgo.ActivityTypeGame:
		return "Playing"
	case discordgo.ActivityTypeStreaming:
		return "Streaming"
	case discordgo.ActivityTypeListening:
		return "Listening"
	case discordgo.ActivityTypeWatching:
		return "Watching"
	case discordgo.ActivityTypeCustom:
		return "CustomStatus"
	case discordgo.ActivityTypeCompeting:
		return "Competing"
	default:
		return ""
	}
}
