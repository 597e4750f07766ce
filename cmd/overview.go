package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/config"
	"github.com/spf13/cobra"
)

var overviewCmd = &cobra.Command{
	Use:   "overview --event ID",
	Short: "Show per-session attendance of an event",
	Long: `Print attendance counts for every session of an event, ordered by
session number. The event owner is left out of the counts unless
--include-owner is given.`,
	Args: cobra.NoArgs,
	RunE: runOverview,
}

func init() {
	rootCmd.AddCommand(overviewCmd)

	overviewCmd.Flags().Int64("event", 0, "Event ID (required)")
	overviewCmd.Flags().Bool("include-owner", false, "Count the event owner too")
	overviewCmd.Flags().Bool("json", false, "Output as JSON")
	_ = overviewCmd.MarkFlagRequired("event")
}

func runOverview(cmd *cobra.Command, args []string) error {
	eventID := mustGetInt64(cmd, "event")
	includeOwner := mustGetBool(cmd, "include-owner")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	pool, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newService(ctx, cfg, store, false)
	overview, err := svc.GetEventAttendanceOverview(ctx, eventID, !includeOwner)
	if err != nil {
		return fmt.Errorf("loading overview of event %d: %w", eventID, err)
	}

	if jsonOutput {
		return outputJSON(overview)
	}
	printOverview(overview)
	return nil
}

func printOverview(o *attendance.EventOverview) {
	fmt.Printf("%s (event %d)\n\n", o.Name, o.EventID)
	if len(o.Sessions) == 0 {
		fmt.Println("No sessions yet.")
		return
	}

	fmt.Printf("%-4s %-17s %-20s %8s %5s %7s %8s\n", "#", "Start", "Location", "Present", "Late", "Absent", "Excused")
	for _, s := range o.Sessions {
		start := "-"
		if s.StartTime != nil {
			start = s.StartTime.Local().Format(time.DateOnly + " 15:04")
		}
		fmt.Printf("%-4d %-17s %-20s %8d %5d %7d %8d\n",
			s.SequenceNumber, start, s.Location,
			s.Counts.Present, s.Counts.Late, s.Counts.Absent, s.Counts.Excused)
	}
	fmt.Printf("%-43s %8d %5d %7d %8d\n", "Total",
		o.Totals.Present, o.Totals.Late, o.Totals.Absent, o.Totals.Excused)
}
