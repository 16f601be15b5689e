package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FlyMan2612/DocCrawler/internal/config"
	"github.com/FlyMan2612/DocCrawler/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past scans from the local history database",
		Long: `History lists scans recorded in the local SQLite database. With
--sensitive it instead lists every document ever flagged sensitive,
across all scans.`,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum number of scans to list")
	cmd.Flags().Bool("sensitive", false, "List flagged documents instead of scans")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	sensitiveOnly, err := cmd.Flags().GetBool("sensitive")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir())
	if err != nil {
		return fmt.Errorf("failed to open scan history database: %w", err)
	}
	defer db.Close()

	if sensitiveOnly {
		return listSensitiveDocuments(cmd, db)
	}
	return listScans(cmd, db, limit)
}

// listScans prints recent scans, newest first.
func listScans(cmd *cobra.Command, db *database.ScanDB, limit int) error {
	scans, err := db.RecentScans(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(scans) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded yet.")
		return nil
	}

	for _, s := range scans {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-40s pages=%-4d documents=%d\n",
			s.StartedAt.Format("2006-01-02 15:04"), s.Seed, s.PagesCrawled, s.DocumentsFound)
	}
	return nil
}

// listSensitiveDocuments prints every flagged document across scans.
func listSensitiveDocuments(cmd *cobra.Command, db *database.ScanDB) error {
	docs, err := db.SensitiveDocuments(cmd.Context())
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sensitive documents recorded.")
		return nil
	}

	flagged := color.New(color.FgRed)
	for _, d := range docs {
		flagged.Fprintln(cmd.OutOrStdout(), d.URL)
	}
	return nil
}
