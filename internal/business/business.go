// Package business implements the work behind every medreserve command.
// Each *Main function returns the function a command runs once its
// configuration is loaded.
package business

import (
	"context"
	"fmt"
	"io"

	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	"github.com/medreserve/medreserve-client/pkg/session"
	sessionmemory "github.com/medreserve/medreserve-client/pkg/session/memory"
	sessionvalkey "github.com/medreserve/medreserve-client/pkg/session/valkey"
)

// clientOptions tune initClient for a single command.
type clientOptions struct {
	navigator session.Navigator
	repo      session.Repository
	apiOpts   []medreserve.Option
}

type clientOption func(*clientOptions)

func withNavigator(n session.Navigator) clientOption {
	return func(o *clientOptions) {
		o.navigator = n
	}
}

// withSessionRepository keeps the session away from the configured store.
func withSessionRepository(repo session.Repository) clientOption {
	return func(o *clientOptions) {
		o.repo = repo
	}
}

func withAPIOptions(opts ...medreserve.Option) clientOption {
	return func(o *clientOptions) {
		o.apiOpts = append(o.apiOpts, opts...)
	}
}

// printNavigator tells the user on out that they have to sign in again.
func printNavigator(out io.Writer) session.Navigator {
	return session.NavigatorFunc(func(ctx context.Context, notice string) {
		_, _ = fmt.Fprintf(out, "%s\nRun `medreserve login` to continue.\n", notice)
	})
}

func initClient(ctx context.Context, cfg *config.Config, out io.Writer, opts ...clientOption) (_ *medreserve.Client, closeFn func(), _ error) {
	o := clientOptions{navigator: printNavigator(out)}
	for _, opt := range opts {
		opt(&o)
	}

	repo, closeFn := o.repo, func() {}
	if repo == nil {
		var err error
		repo, closeFn, err = openSessionRepository(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("initialising the session repository: %w", err)
		}
	}

	sessions := session.NewManager(repo, session.WithNavigator(o.navigator))

	api, err := apiclient.New(cfg.API.BaseURL, sessions,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithTelemetryAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating the api client: %w", err)
	}

	apiOpts := append([]medreserve.Option{medreserve.WithUploadsPerMinute(cfg.API.UploadsPerMinute)}, o.apiOpts...)

	return medreserve.New(api, apiOpts...), closeFn, nil
}

// openSessionRepository is replaced in tests to share one store between
// commands.
var openSessionRepository = initSessionRepository

func initSessionRepository(ctx context.Context, cfg *config.Config) (_ session.Repository, closeFn func(), _ error) {
	switch cfg.SessionStore.Type {
	case config.SessionStoreValKey:
		valkeyOpts, err := config.ValKeyClientOption(cfg.ValKey)
		if err != nil {
			return nil, nil, err
		}

		valkeyClient, err := valkey.NewClient(valkeyOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
		}

		slogctx.Debug(ctx, "Using the valkey session store", "prefix", cfg.SessionStore.Prefix)
		return sessionvalkey.NewRepository(valkeyClient, cfg.SessionStore.Prefix), valkeyClient.Close, nil
	default:
		slogctx.Debug(ctx, "Using the in-memory session store")
		return sessionmemory.NewRepository(), func() {}, nil
	}
}

func displayName(u session.UserSummary) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		return u.Email
	}

	return fmt.Sprintf("%s <%s>", name, u.Email)
}
