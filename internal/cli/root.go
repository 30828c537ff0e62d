package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/markjakearzadon/paymentserver/internal/config"
	"github.com/markjakearzadon/paymentserver/internal/db"
	"github.com/markjakearzadon/paymentserver/internal/services"
	"github.com/markjakearzadon/paymentserver/internal/store"
)

var (
	envFile string
	cfg     *config.Config
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "paymentserver",
	Short: "Payment and evidence API",
	Long: `paymentserver serves the payment API backed by MongoDB.

Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return cfg.Validate()
	},
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("paymentserver %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

func SetVersion(v string) {
	version = v
}

func Execute() error {
	return rootCmd.Execute()
}

// openService connects to MongoDB and builds the payment service on top of
// it. The returned client must be disconnected by the caller.
func openService(ctx context.Context) (*mongo.Client, *services.PaymentService, error) {
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	repo := store.NewMongoRepository(client.Database(cfg.Database))
	if err := repo.EnsureIndexes(ctx); err != nil {
		db.Disconnect(client)
		return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return client, services.NewPaymentService(repo), nil
}
