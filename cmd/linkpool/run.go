package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkpool/internal/monitor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Executa um ciclo de verificação dos links vencidos",
	Args:  cobra.NoArgs,
	RunE:  runCycle,
}

func init() {
	runCmd.Flags().Int("batch-size", monitor.DefaultBatchSize, "Número máximo de links verificados no ciclo")
	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if !cmd.Flags().Changed("batch-size") {
		batchSize = 0
	}

	m := newMonitor(db, batchSize)
	if r := newReporter(); r != nil {
		m.WithReporter(r)
	}

	report := m.RunCycle(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "links: %d  atualizados: %d  falhas de scrape: %d  falhas de gravação: %d  produtos: %d\n",
		len(report.Links),
		report.Count(monitor.StatusUpdated),
		report.Count(monitor.StatusScrapeFailed),
		report.Count(monitor.StatusCommitFailed),
		report.ProductsUpdated(),
	)
	return nil
}
