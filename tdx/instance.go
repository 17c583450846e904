// Package tdx is a client for a remote TeamDynamix ITSM instance. It wraps
// the web API's ticket, asset, and people endpoints behind operations that
// accept human-readable names, resolving them to the opaque identifiers the
// remote requires through a lazily populated identifier cache.
package tdx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/umich-tech-consulting/tdxapi/resolver"
	"github.com/umich-tech-consulting/tdxapi/session"
	"github.com/umich-tech-consulting/tdxapi/transport"
)

// Instance is one configured remote TeamDynamix instance: session config,
// transport, and the identifier cache. Construct one per remote instance
// with New; there is no ambient singleton.
type Instance struct {
	cfg    *session.Config
	tp     *transport.Client
	res    *resolver.Resolver
	logger *slog.Logger
}

// New creates an Instance from a validated config. Transport options are
// forwarded, which lets tests point the instance at a local twin of the
// remote API.
func New(cfg *session.Config, logger *slog.Logger, opts ...transport.Option) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	tp := transport.New(cfg.Domain, cfg.Sandbox, logger, opts...)
	return &Instance{
		cfg:    cfg,
		tp:     tp,
		res:    resolver.New(tp, logger),
		logger: logger,
	}, nil
}

// Resolver exposes the identifier cache for direct population and resolution.
func (i *Instance) Resolver() *resolver.Resolver {
	return i.res
}

// SetAuthToken sets the bearer token for authenticated calls.
func (i *Instance) SetAuthToken(token string) {
	i.tp.SetToken(token)
}

// LoadAuthToken reads the bearer token from the configured token file. A
// missing file is a surfaced error; obtain and save a token first.
func (i *Instance) LoadAuthToken() error {
	token, err := session.LoadToken(i.tokenFile())
	if err != nil {
		return err
	}
	i.tp.SetToken(token)
	return nil
}

// SaveAuthToken persists the current bearer token to the configured token file.
func (i *Instance) SaveAuthToken() error {
	return session.SaveToken(i.tokenFile(), i.tp.Token())
}

func (i *Instance) tokenFile() string {
	if i.cfg.TokenFile != "" {
		return i.cfg.TokenFile
	}
	return session.DefaultTokenFile
}

// CurrentUser returns the signed-in user, which doubles as an
// authentication probe: a rejected token surfaces as
// transport.ErrNotAuthorized.
func (i *Instance) CurrentUser(ctx context.Context) (*Person, error) {
	resp, err := i.tp.Get(ctx, "auth/getuser")
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var user Person
	if err := resp.JSON(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Initialize verifies authentication and populates the identifier cache for
// the configured default applications.
func (i *Instance) Initialize(ctx context.Context) error {
	user, err := i.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("checking authentication: %w", err)
	}
	i.logger.Info("signed in", "user", user.PrimaryEmail)

	var ticketApps, assetApps []string
	if i.cfg.DefaultTicketApp != "" {
		ticketApps = append(ticketApps, i.cfg.DefaultTicketApp)
	}
	if i.cfg.DefaultAssetApp != "" {
		assetApps = append(assetApps, i.cfg.DefaultAssetApp)
	}
	return i.res.Initialize(ctx, ticketApps, assetApps)
}

// ticketApp returns the application name to use for a ticket operation,
// falling back to the configured default.
func (i *Instance) ticketApp(appName string) (string, error) {
	if appName != "" {
		return appName, nil
	}
	if i.cfg.DefaultTicketApp != "" {
		return i.cfg.DefaultTicketApp, nil
	}
	return "", &InvalidParameterError{Param: "appName", Reason: "no ticket application given and no default configured"}
}

// assetApp returns the application name to use for an asset operation,
// falling back to the configured default.
func (i *Instance) assetApp(appName string) (string, error) {
	if appName != "" {
		return appName, nil
	}
	if i.cfg.DefaultAssetApp != "" {
		return i.cfg.DefaultAssetApp, nil
	}
	return "", &InvalidParameterError{Param: "appName", Reason: "no asset application given and no default configured"}
}

// appID resolves an application name through the cache.
func (i *Instance) appID(appName string) (int, error) {
	return i.res.Resolve(resolver.AppIDs, appName)
}
