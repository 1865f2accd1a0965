package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/observability"
	"github.com/integrity-watch/report-service/internal/persistence"
	"github.com/integrity-watch/report-service/internal/repository"
	"github.com/integrity-watch/report-service/internal/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "report-admin",
		Short:         "Operational tasks for the report service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCreateUserCommand(), newEnsureIndexesCommand())
	return root
}

// connect loads configuration and opens the Mongo deployment the API uses.
func connect(ctx context.Context) (*config.Config, *zap.Logger, *persistence.Mongo, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	return cfg, logger, db, nil
}

func newCreateUserCommand() *cobra.Command {
	var in service.CreateUserInput
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Provision an account, typically the first administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())
			defer logger.Sync() //nolint:errcheck

			in.Role = domain.Role(role)
			users := service.NewUserService(*cfg, service.UserDependencies{
				UserRepo: repository.NewUserRepository(db.DB),
			})
			user, err := users.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Initial password")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "citizen, police or admin")
	cmd.Flags().StringVar(&in.BadgeNumber, "badge", "", "Badge number, required for police")
	cmd.Flags().StringVar(&in.Location.State, "state", "", "State")
	cmd.Flags().StringVar(&in.Location.City, "city", "", "City")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newEnsureIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the service relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, logger, db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())
			defer logger.Sync() //nolint:errcheck

			return persistence.EnsureIndexes(ctx, db.DB, logger)
		},
	}
}
