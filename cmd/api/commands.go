package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/session-gate/internal/config"
	"github.com/yourusername/session-gate/internal/logging"
	"github.com/yourusername/session-gate/internal/server"
)

type configKey struct{}

// rootCommand はサブコマンドを束ねたルートコマンドです。サブコマンド省略時は serve と同じ動作をします。
func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "api [command]",
		Short:        "Session-based login gateway",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.New(cfg.LogLevel)
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		RunE: runServe,
	}

	cmd.AddCommand(
		serveCommand(),
		seedCommand(),
		userCommand(),
	)
	return cmd
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) (runErr error) {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to start", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}()

	if cfg.SeedDemoUsers {
		// 失敗してもサーバーは起動する
		if err := a.seed(ctx); err != nil {
			logger.ErrorContext(ctx, "seeding finished with errors", slog.Any("error", err))
		}
	}

	router, err := a.router()
	if err != nil {
		return err
	}

	listener, err := server.Listen(ctx, ":"+cfg.Port)
	if err != nil {
		logger.ErrorContext(ctx, "failed to listen", slog.String("port", cfg.Port), slog.Any("error", err))
		return err
	}

	logger.InfoContext(ctx, "starting API server",
		slog.String("port", cfg.Port),
		slog.String("mode", cfg.GinMode),
		slog.String("store", cfg.StoreDriver),
		slog.String("sessions", cfg.SessionStore),
	)
	grp, gctx := errgroup.WithContext(ctx)
	server.Serve(gctx, grp, router, listener, logger)
	return grp.Wait()
}

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Register the demo accounts when the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			a, err := openStoreOnly(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()
			return a.seed(ctx)
		},
	}
}

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(userCreateCommand())
	return cmd
}

func userCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Creates a user with the provided username. The password is read from\n" +
			"the interactive prompt or from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			a, err := openStoreOnly(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			name := args[0]
			password, err := prompt("password: ", true)
			if err != nil {
				return err
			}
			user, err := a.users.Register(ctx, name, string(password))
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "created user", slog.String("username", user.Username), slog.String("id", user.ID))
			return nil
		},
	}
}

func loadConfig(ctx context.Context) (*config.Config, *slog.Logger, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		return nil, nil, errors.New("config resolution failed")
	}
	return cfg, slog.Default(), nil
}
