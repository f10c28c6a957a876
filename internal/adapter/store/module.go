package store

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/config"
)

var Module = fx.Module("store",
	fx.Provide(
		func(client redis.UniversalClient, cfg *config.Config) *Store {
			return New(client, NewKeys(cfg.Redis.Prefix))
		},
	),
)
