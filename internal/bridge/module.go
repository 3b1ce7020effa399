package bridge

import (
	"github.com/ajanottaja/identity-bridge/internal/requester"
	"go.uber.org/fx"
)

// Module provides the bridge service and its account client
var Module = fx.Module("bridge",
	fx.Provide(
		func(r *requester.HTTPRequester) Doer { return r },
		fx.Annotate(
			NewHTTPAccountClient,
			fx.As(new(AccountClient)),
		),
		NewService,
	),
)
