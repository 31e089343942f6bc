// Package appid resolves the application identity, falling back to the
// embedded .fulmen/app.yaml for standalone binaries.
package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/headhuntertrace/headhunter/internal/assets/appidentity"
)

// DefaultEnvPrefix is used when no identity can be loaded.
const DefaultEnvPrefix = "HEADHUNTER_"

func init() {
	// Explicit overrides (Options.ExplicitPath, FULMEN_APP_IDENTITY_PATH) still win.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvPrefix returns the identity's environment prefix, including the
// trailing underscore.
func EnvPrefix() string {
	identity, err := Get(context.Background())
	if err != nil || identity == nil || identity.EnvPrefix == "" {
		return DefaultEnvPrefix
	}
	return identity.EnvPrefix
}
