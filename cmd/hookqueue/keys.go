package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kiranshivaraju/hookqueue/internal/api/handler"
	"github.com/kiranshivaraju/hookqueue/internal/store"
	"github.com/spf13/cobra"
)

var (
	keyName   string
	keyScopes []string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key and print it once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		scopes, err := handler.ValidateScopes(keyScopes)
		if err != nil {
			return err
		}

		ctx := context.Background()
		_, pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		key, raw, err := handler.NewAPIKey(keyName, scopes)
		if err != nil {
			return err
		}
		if err := store.NewPostgresStore(pool).CreateAPIKey(ctx, key); err != nil {
			return fmt.Errorf("create api key: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return json.NewEncoder(out).Encode(map[string]any{
				"id":         key.ID,
				"name":       key.Name,
				"key":        raw,
				"key_prefix": key.KeyPrefix,
				"scopes":     key.Scopes,
			})
		}
		fmt.Fprintf(out, "Created key %s (%s) with scopes %v\n", key.Name, key.ID, key.Scopes)
		fmt.Fprintf(out, "%s\n", raw)
		fmt.Fprintln(os.Stderr, "Store this key now; it cannot be shown again.")
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "Human-readable key name")
	keysCreateCmd.Flags().StringSliceVar(&keyScopes, "scopes", nil, "Comma-separated scopes (jobs, admin)")
	_ = keysCreateCmd.MarkFlagRequired("name")

	keysCmd.AddCommand(keysCreateCmd)
	rootCmd.AddCommand(keysCmd)
}
