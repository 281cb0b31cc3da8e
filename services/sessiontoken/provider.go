package sessiontoken

import (
	"github.com/tech-arch1tect/gatekeeper/services/credentials"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		func(v *credentials.Verifier) Authenticator { return v },
		NewIssuer,
	),
)
