package requester

import (
	"github.com/ajanottaja/identity-bridge/internal/config"
	"go.uber.org/fx"
)

// Module provides the requester module dependencies
var Module = fx.Options(
	fx.Provide(
		func(cfg *config.Config) *config.DownstreamConfig { return &cfg.Downstream },
		NewHTTPRequester,
		fx.Annotate(
			NewHTTPAuthManager,
			fx.As(new(AuthManager)),
		),
	),
)
