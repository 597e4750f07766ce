package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/veriface/internal/config"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/fingerprint"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll --member ID IMAGE",
	Short: "Store a member's reference face from a photo",
	Long: `Compute the face embedding of a photo showing exactly one person and
store it as the member's reference. Members whose faces are similar enough
to be confused with the new one are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int64("member", 0, "Member ID (required)")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
	_ = enrollCmd.MarkFlagRequired("member")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	memberID := mustGetInt64(cmd, "member")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	pool, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	embedder := fingerprint.NewEmbeddingClient(cfg.Embedding.URL, constants.MaxImageSize)
	embedding, err := embedder.EmbedSingleFace(ctx, data)
	if err != nil {
		return fmt.Errorf("embedding %s: %w", args[0], err)
	}

	svc := newService(ctx, cfg, store, true)
	result, err := svc.Enroll(ctx, memberID, embedding)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Enrolled member %d\n", result.MemberID)
	if len(result.LookAlikes) > 0 {
		fmt.Println("\nSimilar looking members:")
		for _, l := range result.LookAlikes {
			fmt.Printf("  %-6d %-30s %.3f\n", l.MemberID, l.Name, l.Similarity)
		}
	}
	return nil
}
