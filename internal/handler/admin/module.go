package admin

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/config"
	"github.com/webitel/im-discord-relay/internal/adapter/store"
	"github.com/webitel/im-discord-relay/internal/service/drain"
	"github.com/webitel/im-discord-relay/internal/service/replay"
)

var Module = fx.Module("admin-handler",
	fx.Provide(
		func(
			st *store.Store,
			engine *replay.Engine,
			listener *drain.Listener,
			drainer *drain.Drainer,
			logger *slog.Logger,
		) *Handler {
			return NewHandler(st, engine, listener, drainer, logger)
		},
		func(cfg *config.Config, h *Handler, logger *slog.Logger) *Server {
			return NewServer(cfg.Admin.Addr, h, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{OnStart: s.Start, OnStop: s.Stop})
	}),
)
