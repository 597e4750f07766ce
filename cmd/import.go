package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/veriface/internal/config"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/credential"
	"github.com/kozaktomas/veriface/internal/membership"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import --event ID FILE.csv",
	Short: "Add members to an event from a CSV file",
	Long: `Import members into an event from a CSV file with the columns
first_name, last_name and email (header names are case-insensitive and may
use spaces or hyphens).

Every row is validated before anything is written. If any row is invalid,
all invalid rows are listed and the event is left unchanged. Members that
do not exist yet are created with a random password which is printed once.

Examples:
  veriface import --event 3 students.csv
  veriface import --event 3 students.csv --json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int64("event", 0, "Event ID (required)")
	importCmd.Flags().Bool("json", false, "Output as JSON")
	_ = importCmd.MarkFlagRequired("event")
}

func runImport(cmd *cobra.Command, args []string) error {
	eventID := mustGetInt64(cmd, "event")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if info.Size() > constants.MaxCSVSize {
		return fmt.Errorf("%s is larger than %d bytes", args[0], constants.MaxCSVSize)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	pool, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	importer := membership.NewImporter(store, credential.NewBcryptHasher(), membership.ImporterOptions{
		MaxRows:        cfg.Import.MaxRows,
		PasswordLength: cfg.Import.PasswordLength,
	})

	rows, err := membership.ParseCSV(f, importer.MaxRows())
	if err != nil {
		return err
	}

	result, err := importer.BulkAddMembers(ctx, eventID, rows)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(result)
	}
	printImportResult(result)
	if result.Failed {
		return fmt.Errorf("import rejected: %d invalid rows", result.InvalidRows)
	}
	return nil
}

func printImportResult(result *membership.ImportResult) {
	fmt.Printf("Batch %s: %d rows\n", result.BatchID, result.TotalRows)
	if result.Failed {
		fmt.Println(result.Message)
		fmt.Println()
		for _, e := range result.Errors {
			fmt.Printf("  row %-4d %-30s %s\n", e.Row, e.Email, e.Message)
		}
		return
	}

	fmt.Println(result.Message)
	fmt.Printf("  Created:         %d\n", result.NewMembersCreated)
	fmt.Printf("  Added:           %d\n", result.ExistingMembersAdded)
	fmt.Printf("  Already members: %d\n", result.AlreadyInEvent)

	if len(result.Credentials) > 0 {
		fmt.Println("\nInitial passwords (shown once):")
		for _, c := range result.Credentials {
			fmt.Printf("  %-40s %s\n", c.Email, c.Password)
		}
	}
}
