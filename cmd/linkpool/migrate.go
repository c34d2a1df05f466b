package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkpool/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Monta o pool de links a partir dos produtos existentes (pode ser repetido)",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := migrate.Run(cmd.Context(), db)
	if err != nil {
		return fmt.Errorf("migração falhou: %w", err)
	}

	links, err := db.CountLinks(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "produtos: %d  ignorados: %d  lotes: %d  links no pool: %d\n",
		stats.Products, stats.Skipped, stats.Batches, links)
	return nil
}
