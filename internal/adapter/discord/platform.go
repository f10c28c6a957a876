// Package discord adapts the discordgo session to the relay's capture and
// dispatch contracts.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sony/gobreaker"

	"github.com/webitel/im-discord-relay/internal/domain/model"
	"github.com/webitel/im-discord-relay/internal/service/dispatch"
)

// REST is the subset of *discordgo.Session used for outbound actions.
type REST interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
}

var _ REST = (*discordgo.Session)(nil)

// Platform implements dispatch.Platform on top of the REST API.
//
// [RESILIENCE]
// Every call goes through one circuit breaker. Only transient failures count
// against it; a missing channel or message is a normal outcome.
type Platform struct {
	rest      REST
	directory *Directory
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

var _ dispatch.Platform = (*Platform)(nil)

func NewPlatform(rest REST, directory *Directory, logger *slog.Logger) *Platform {
	p := &Platform{rest: rest, directory: directory, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "discord-rest",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("CIRCUIT_STATE_CHANGED", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

func (p *Platform) exec(op string, fn func() error) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, classify(op, fn())
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return classify(op, err)
	}
	return err
}

// ResolveChannel confirms the channel exists and is visible to the bot.
func (p *Platform) ResolveChannel(ctx context.Context, id model.Snowflake) (dispatch.Channel, error) {
	if p.directory != nil {
		if _, ok := p.directory.ChannelName(id.String()); ok {
			return &channel{p: p, id: id}, nil
		}
	}

	var ch *discordgo.Channel
	err := p.exec("resolve channel", func() error {
		var err error
		ch, err = p.rest.Channel(id.String(), discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}

	if p.directory != nil && ch != nil {
		p.directory.Remember(ch.ID, ch.Name)
	}
	return &channel{p: p, id: id}, nil
}

type channel struct {
	p  *Platform
	id model.Snowflake
}

func (c *channel) ID() model.Snowflake { return c.id }

func (c *channel) SendMessage(ctx context.Context, content string) error {
	return c.p.exec("send message", func() error {
		_, err := c.p.rest.ChannelMessageSend(c.id.String(), content, discordgo.WithContext(ctx))
		return err
	})
}

func (c *channel) DeleteMessage(ctx context.Context, messageID model.Snowflake) error {
	return c.p.exec("delete message", func() error {
		return c.p.rest.ChannelMessageDelete(c.id.String(), messageID.String(), discordgo.WithContext(ctx))
	})
}

func (c *channel) FetchMessage(ctx context.Context, messageID model.Snowflake) (dispatch.Message, error) {
	err := c.p.exec("fetch message", func() error {
		_, err := c.p.rest.ChannelMessage(c.id.String(), messageID.String(), discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &message{ch: c, id: messageID}, nil
}

type message struct {
	ch *channel
	id model.Snowflake
}

func (m *message) ID() model.Snowflake { return m.id }

func (m *message) AddReaction(ctx context.Context, emote string) error {
	return m.ch.p.exec("add reaction", func() error {
		return m.ch.p.rest.MessageReactionAdd(m.ch.id.String(), m.id.String(), reactionTarget(emote), discordgo.WithContext(ctx))
	})
}

// RemoveOwnReaction leaves reactions placed by other users intact.
func (m *message) RemoveOwnReaction(ctx context.Context, emote string) error {
	return m.ch.p.exec("remove reaction", func() error {
		return m.ch.p.rest.MessageReactionRemove(m.ch.id.String(), m.id.String(), reactionTarget(emote), "@me", discordgo.WithContext(ctx))
	})
}

func (m *message) RemoveAllReactions(ctx context.Context) error {
	return m.ch.p.exec("remove all reactions", func() error {
		return m.ch.p.rest.MessageReactionsRemoveAll(m.ch.id.String(), m.id.String(), discordgo.WithContext(ctx))
	})
}
