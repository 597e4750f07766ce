package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/config"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/fingerprint"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin --session ID IMAGE...",
	Short: "Check in everyone recognized in one or more photos",
	Long: `Detect every face in the given photos and check in the best matching
member of the session roster for each face. Faces below the threshold are
reported and leave the roster unchanged.

Examples:
  veriface checkin --session 12 door-cam-0815.jpg
  veriface checkin --session 12 --threshold 0.6 group/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckin,
}

func init() {
	rootCmd.AddCommand(checkinCmd)

	checkinCmd.Flags().Int64("session", 0, "Session ID (required)")
	checkinCmd.Flags().Float64("threshold", 0, "Minimum cosine similarity in [0,1] (defaults to MATCH_THRESHOLD)")
	checkinCmd.Flags().Int("concurrency", 4, "Number of photos processed in parallel")
	checkinCmd.Flags().Bool("json", false, "Output as JSON")
	_ = checkinCmd.MarkFlagRequired("session")
}

// CheckinFaceResult is the outcome for one detected face
type CheckinFaceResult struct {
	File       string  `json:"file"`
	Face       int     `json:"face"`
	MemberID   int64   `json:"member_id,omitempty"`
	MemberName string  `json:"member_name,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// CheckinResult summarizes a checkin run
type CheckinResult struct {
	SessionID     int64               `json:"session_id"`
	Images        int                 `json:"images"`
	Faces         []CheckinFaceResult `json:"faces"`
	Recognized    int                 `json:"recognized"`
	DurationMs    int64               `json:"duration_ms"`
	DurationHuman string              `json:"duration_human,omitempty"`
}

// resolveThreshold returns --threshold when given, including an explicit 0,
// and fallback otherwise.
func resolveThreshold(cmd *cobra.Command, fallback float64) (float64, error) {
	threshold, ok := mustGetChanged(cmd, "threshold", cmd.Flags().GetFloat64)
	if !ok {
		return fallback, nil
	}
	if threshold < 0 || threshold > 1 {
		return 0, fmt.Errorf("--threshold must be between 0 and 1, got %g", threshold)
	}
	return threshold, nil
}

func runCheckin(cmd *cobra.Command, args []string) error {
	sessionID := mustGetInt64(cmd, "session")
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	threshold, err := resolveThreshold(cmd, cfg.Matching.Threshold)
	if err != nil {
		return err
	}

	pool, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newService(ctx, cfg, store, false)
	embedder := fingerprint.NewEmbeddingClient(cfg.Embedding.URL, constants.MaxImageSize)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Checking in"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	// Each photo is checked in independently; results keep argument order.
	perImage := make([][]CheckinFaceResult, len(args))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, path := range args {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			perImage[i] = checkinImage(ctx, svc, embedder, sessionID, path, threshold)
			if bar != nil {
				bar.Add(1)
			}
		}(i, path)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	result := CheckinResult{SessionID: sessionID, Images: len(args)}
	for _, faces := range perImage {
		for _, f := range faces {
			if f.Error == "" {
				result.Recognized++
			}
		}
		result.Faces = append(result.Faces, faces...)
	}

	duration := time.Since(startTime)
	result.DurationMs = duration.Milliseconds()

	if jsonOutput {
		return outputJSON(result)
	}

	result.DurationHuman = formatDuration(duration)
	fmt.Printf("\nSession %d: %d of %d faces recognized in %s\n\n",
		sessionID, result.Recognized, len(result.Faces), result.DurationHuman)
	for _, f := range result.Faces {
		if f.Error != "" {
			fmt.Printf("  %-30s face %-2d  %s\n", f.File, f.Face, f.Error)
			continue
		}
		fmt.Printf("  %-30s face %-2d  %s (%.3f)\n", f.File, f.Face, f.MemberName, f.Similarity)
	}
	return nil
}

// checkinImage checks in every face of one photo. Failures are reported per face.
func checkinImage(ctx context.Context, svc *attendance.Service, embedder *fingerprint.EmbeddingClient,
	sessionID int64, path string, threshold float64) []CheckinFaceResult {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return []CheckinFaceResult{{File: name, Error: fmt.Sprintf("reading file: %v", err)}}
	}

	detected, err := embedder.EmbedFaces(ctx, data)
	if err != nil {
		return []CheckinFaceResult{{File: name, Error: err.Error()}}
	}
	if len(detected.Faces) == 0 {
		return []CheckinFaceResult{{File: name, Error: fingerprint.ErrNoFaceDetected.Error()}}
	}

	queries := make([][]float32, len(detected.Faces))
	for i, f := range detected.Faces {
		queries[i] = f.Embedding
	}

	outcomes := svc.CheckInFaces(ctx, sessionID, queries, threshold)
	results := make([]CheckinFaceResult, len(outcomes))
	for i, o := range outcomes {
		r := CheckinFaceResult{File: name, Face: o.Index + 1}
		switch {
		case o.Err == nil:
			r.MemberID = o.Result.MemberID
			r.MemberName = o.Result.MemberName
			r.Similarity = o.Result.Similarity
		case errors.Is(o.Err, attendance.ErrNotRecognized):
			r.Error = "not recognized"
		default:
			r.Error = o.Err.Error()
		}
		results[i] = r
	}
	return results
}
