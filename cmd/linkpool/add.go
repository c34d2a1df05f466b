package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkpool/internal/database"
	"linkpool/internal/linkkey"
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Salva um produto para um usuário e o associa ao pool de links",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().String("user", "", "ID do usuário dono do produto")
	addCmd.Flags().String("collection", "", "Nome da coleção")
	addCmd.Flags().String("title", "", "Título do produto")
	addCmd.Flags().Float64("price", 0, "Preço atual conhecido")
	addCmd.Flags().String("currency", "", "Moeda do preço")
	addCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	user, _ := cmd.Flags().GetString("user")
	collection, _ := cmd.Flags().GetString("collection")
	title, _ := cmd.Flags().GetString("title")
	price, _ := cmd.Flags().GetFloat64("price")
	currency, _ := cmd.Flags().GetString("currency")

	p, err := db.AddProduct(cmd.Context(), database.NewProduct{
		URL:            args[0],
		UserID:         user,
		CollectionName: collection,
		Title:          title,
		Price:          price,
		Currency:       currency,
	})
	if err != nil {
		return fmt.Errorf("erro ao adicionar produto: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "produto %s adicionado ao link %s\n", p.ID, linkkey.Derive(p.URL))
	return nil
}
