// Command lineagectl drives session operations from the shell using the
// same container as the API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CivicGraph/demo-server/infrastructure/config"
	"github.com/CivicGraph/demo-server/infrastructure/di"
)

func main() {
	if err := newRootCmd(containerApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// containerApp loads configuration the way the server does, letting
// --config point at a YAML overlay.
func containerApp(cmd *cobra.Command) (*app, func(), error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		os.Setenv("CONFIG_FILE", path)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return &app{commandBus: container.CommandBus, queryBus: container.QueryBus}, func() {
		_ = container.Logger.Sync()
		cleanup()
	}, nil
}
