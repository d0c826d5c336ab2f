package common

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

type appKey struct{}

var errNoApp = errors.New("application context is not initialized")

// WithApp attaches app to ctx for the command tree.
func WithApp(ctx context.Context, app *AppContext) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// AppFrom returns the AppContext stored by WithApp.
func AppFrom(ctx context.Context) (*AppContext, error) {
	if ctx == nil {
		return nil, errNoApp
	}
	app, ok := ctx.Value(appKey{}).(*AppContext)
	if !ok || app == nil {
		return nil, errNoApp
	}
	return app, nil
}

func FromCommand(cmd *cobra.Command) (*AppContext, error) {
	return AppFrom(cmd.Context())
}
