package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/config"
)

var Module = fx.Module("discord-adapter",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) (*discordgo.Session, error) {
			return NewSession(cfg.Discord.Token, logger)
		},
		func(s *discordgo.Session) *Directory {
			return NewDirectory(s.State, defaultDirectorySize)
		},
		func(s *discordgo.Session, dir *Directory, logger *slog.Logger) *Platform {
			return NewPlatform(s, dir, logger)
		},
	),
)
