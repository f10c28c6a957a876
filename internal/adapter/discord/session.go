package discord

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Intents covers every gateway event the relay captures.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildPresences |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// messageCacheSize keeps recent messages in state so edits can report the
// pre-edit message.
const messageCacheSize = 200

var bridgeOnce sync.Once

// NewSession builds an unopened bot session. discordgo's own logging is
// routed into logger.
func NewSession(token string, logger *slog.Logger) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}

	s.Identify.Intents = Intents
	s.LogLevel = discordgo.LogError
	s.State.MaxMessageCount = messageCacheSize
	s.StateEnabled = true
	// handlers run in gateway order, so capture timestamps follow arrival order
	s.SyncEvents = true

	bridgeOnce.Do(func() {
		discordgo.Logger = func(level, caller int, format string, a ...interface{}) {
			_, file, line, _ := runtime.Caller(caller)
			logger.Log(context.Background(), slogLevel(level), "DISCORDGO: "+fmt.Sprintf(format, a...),
				"source", fmt.Sprintf("%s:%d", file, line))
		}
	})
	return s, nil
}

func slogLevel(level int) slog.Level {
	switch level {
	case discordgo.LogError:
		return slog.LevelError
	case discordgo.LogWarning:
		return slog.LevelWarn
	case discordgo.LogInformational:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
