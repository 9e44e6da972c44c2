package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tenkit/tenkit/internal/config"
	"github.com/tenkit/tenkit/internal/store"
	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
	"github.com/tenkit/tenkit/internal/token"
)

// seed bootstraps a tenant for local development and demos: an account
// with its owner user, a registered client application, and optionally a
// first schema document.

func main() {
	_ = godotenv.Load()

	var (
		cfgPath     string
		accountName string
		ownerEmail  string
		ownerName   string
		schemaNS    string
		schemaURI   string
		schemaFile  string
	)

	root := &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap a tenant account with an owner, a client application and an optional schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if schemaNS != "" && cfg.NamespaceReserved(schemaNS) {
				return fmt.Errorf("namespace %q is reserved", schemaNS)
			}
			if schemaFile != "" && (schemaNS == "" || schemaURI == "") {
				return fmt.Errorf("--schema-ns and --schema-uri are required with --schema-file")
			}

			ctx := context.Background()
			repo, err := store.Open(ctx, store.Config{
				Driver: cfg.Storage.Driver,
				Mongo: store.MongoConfig{
					URI:      cfg.Storage.Mongo.URI,
					Database: cfg.Storage.Mongo.Database,
				},
			})
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer func() { _ = repo.Close(context.Background()) }()

			now := time.Now().UTC()

			acc := &core.Account{ID: uuid.NewString(), Name: accountName, CreatedAt: now}

			uniqueKey, err := token.Generate(20)
			if err != nil {
				return err
			}
			owner := &core.User{
				ID:        uuid.NewString(),
				AccountID: acc.ID,
				UniqueKey: uniqueKey,
				Email:     ownerEmail,
				Name:      ownerName,
				CreatedAt: now,
			}
			acc.OwnerID = owner.ID

			if err := repo.CreateAccount(ctx, acc); err != nil {
				return fmt.Errorf("account: %w", err)
			}
			if err := repo.CreateUser(ctx, owner); err != nil {
				return fmt.Errorf("owner: %w", err)
			}

			tctx := tenant.With(ctx, acc)

			appID := &core.ApplicationID{
				ID:         uuid.NewString(),
				AccountID:  acc.ID,
				Identifier: uuid.NewString(),
				CreatedAt:  now,
			}
			if err := repo.CreateApplicationID(tctx, appID); err != nil {
				return fmt.Errorf("application id: %w", err)
			}

			secret, err := token.Generate(60)
			if err != nil {
				return err
			}
			application := &core.Application{
				ID:              uuid.NewString(),
				ApplicationIDID: appID.ID,
				SecretToken:     secret,
				RedirectURIs:    []string{cfg.Homepage},
				CreatedAt:       now,
			}
			if err := repo.CreateApplication(tctx, acc, application); err != nil {
				return fmt.Errorf("application: %w", err)
			}

			if schemaFile != "" {
				body, err := os.ReadFile(schemaFile)
				if err != nil {
					return fmt.Errorf("schema file: %w", err)
				}
				if err := repo.CreateSchema(tctx, &core.Schema{
					ID:         uuid.NewString(),
					Namespace:  schemaNS,
					URI:        schemaURI,
					Schema:     string(body),
					SchemaType: core.SchemaTypeXML,
					CreatedAt:  now,
				}); err != nil {
					return fmt.Errorf("schema: %w", err)
				}
			}

			fmt.Printf("account_id:    %s\n", acc.ID)
			fmt.Printf("owner_key:     %s\n", owner.UniqueKey)
			fmt.Printf("client_id:     %s\n", appID.Identifier)
			fmt.Printf("client_secret: %s\n", secret)
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "config.yaml", "path to config.yaml")
	root.Flags().StringVar(&accountName, "account", "dev", "account name")
	root.Flags().StringVar(&ownerEmail, "email", "owner@example.test", "owner email")
	root.Flags().StringVar(&ownerName, "name", "Owner", "owner display name")
	root.Flags().StringVar(&schemaNS, "schema-ns", "", "namespace for the seeded schema")
	root.Flags().StringVar(&schemaURI, "schema-uri", "", "uri for the seeded schema")
	root.Flags().StringVar(&schemaFile, "schema-file", "", "path to an XSD to seed")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
