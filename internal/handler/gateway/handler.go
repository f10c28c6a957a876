// Package gateway binds discordgo session callbacks to the relay.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/webitel/im-discord-relay/internal/domain/model"
	"github.com/webitel/im-discord-relay/internal/service/capture"
	"github.com/webitel/im-discord-relay/internal/service/relay"
)

// PrimeSignal is published on the ready channel after every connect so that
// commands queued while disconnected are drained.
const PrimeSignal = "init"

const eventTimeout = 15 * time.Second

// Listener is the drain listener lifecycle tied to gateway connectivity.
type Listener interface {
	Start(ctx context.Context) error
	Stop() error
}

type Signaler interface {
	Signal(ctx context.Context, value string) error
}

// Session is the callback registry of *discordgo.Session.
type Session interface {
	AddHandler(handler interface{}) func()
}

type Handler struct {
	mapper   *capture.Mapper
	relay    relay.Relayer
	listener Listener
	signaler Signaler
	logger   *slog.Logger

	mu      sync.Mutex
	removes []func()
}

func NewHandler(mapper *capture.Mapper, relayer relay.Relayer, listener Listener, signaler Signaler, logger *slog.Logger) *Handler {
	return &Handler{
		mapper:   mapper,
		relay:    relayer,
		listener: listener,
		signaler: signaler,
		logger:   logger,
	}
}

// Attach registers every callback on the session. Attaching twice is a no-op.
func (h *Handler) Attach(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.removes) > 0 {
		return
	}

	h.removes = []func(){
		s.AddHandler(h.OnConnect),
		s.AddHandler(h.OnDisconnect),
		s.AddHandler(h.OnMessageCreate),
		s.AddHandler(h.OnMessageUpdate),
		s.AddHandler(h.OnMessageDelete),
		s.AddHandler(h.OnReactionAdd),
		s.AddHandler(h.OnReactionRemove),
		s.AddHandler(h.OnUserUpdate),
		s.AddHandler(h.OnPresenceUpdate),
		s.AddHandler(h.OnGuildMemberUpdate),
	}
	h.logger.Info("GATEWAY_HANDLERS_ATTACHED", "count", len(h.removes))
}

// Detach removes every callback; events arriving afterwards are not captured.
func (h *Handler) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, remove := range h.removes {
		remove()
	}
	if len(h.removes) > 0 {
		h.logger.Info("GATEWAY_HANDLERS_DETACHED")
	}
	h.removes = nil
}

// OnConnect starts draining and primes the ready channel before announcing
// the connection.
func (h *Handler) OnConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := h.listener.Start(ctx); err != nil {
		h.logger.Error("DRAIN_LISTENER_START_FAILED", "err", err)
	} else if err := h.signaler.Signal(ctx, PrimeSignal); err != nil {
		h.logger.Error("CONTROL_PRIME_FAILED", "err", err)
	}

	h.emit(ctx, h.mapper.Connected())
}

func (h *Handler) OnDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	if err := h.listener.Stop(); err != nil {
		h.logger.Warn("DRAIN_LISTENER_STOP_FAILED", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	h.emit(ctx, h.mapper.Disconnected(nil))
}

func (h *Handler) OnMessageCreate(_ *discordgo.Session, e *discordgo.MessageCreate) {
	if e == nil || e.Message == nil {
		return
	}
	h.relayNow(h.mapper.ContentReceived(e.Message))
}

func (h *Handler) OnMessageUpdate(_ *discordgo.Session, e *discordgo.MessageUpdate) {
	if e == nil || e.Message == nil {
		return
	}
	h.relayNow(h.mapper.ContentUpdated(e.Message, e.BeforeUpdate))
}

func (h *Handler) OnMessageDelete(_ *discordgo.Session, e *discordgo.MessageDelete) {
	if e == nil || e.Message == nil {
		return
	}
	h.relayNow(h.mapper.ContentDeleted(e.Message))
}

func (h *Handler) OnReactionAdd(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
	if e == nil || e.MessageReaction == nil {
		return
	}
	h.relayNow(h.mapper.ReactionAdded(e.MessageReaction))
}

func (h *Handler) OnReactionRemove(_ *discordgo.Session, e *discordgo.MessageReactionRemove) {
	if e == nil || e.MessageReaction == nil {
		return
	}
	h.relayNow(h.mapper.ReactionRemoved(e.MessageReaction))
}

func (h *Handler) OnUserUpdate(_ *discordgo.Session, e *discordgo.UserUpdate) {
	if e == nil || e.User == nil {
		return
	}
	h.relayNow(h.mapper.UserUpdated(e.User))
}

func (h *Handler) OnPresenceUpdate(_ *discordgo.Session, e *discordgo.PresenceUpdate) {
	if e == nil {
		return
	}
	h.relayNow(h.mapper.PresenceUpdated(e.GuildID, &e.Presence))
}

func (h *Handler) OnGuildMemberUpdate(_ *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	if e == nil || e.Member == nil {
		return
	}
	h.relayNow(h.mapper.MemberUpdated(e.Member))
}

func (h *Handler) relayNow(ev model.Eventer) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	h.emit(ctx, ev)
}

// emit hands the event to the relay. Failures are already logged there and
// the gateway keeps running.
func (h *Handler) emit(ctx context.Context, ev model.Eventer) {
	if err := h.relay.Relay(ctx, ev); err != nil {
		h.logger.Debug("EVENT_NOT_RELAYED", "kind", ev.GetKind(), "ts", ev.GetTimestamp())
	}
}
