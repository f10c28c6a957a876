package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/internal/adapter/store"
	"github.com/webitel/im-discord-relay/internal/service/capture"
	"github.com/webitel/im-discord-relay/internal/service/drain"
	"github.com/webitel/im-discord-relay/internal/service/relay"
)

var Module = fx.Module("gateway-handler",
	fx.Provide(
		func(m *capture.Mapper, r relay.Relayer, l *drain.Listener, st *store.Store, logger *slog.Logger) *Handler {
			return NewHandler(m, r, l, st, logger)
		},
	),
)
