package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/config"
	"github.com/kozaktomas/veriface/internal/database"
	"github.com/kozaktomas/veriface/internal/database/postgres"
)

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// openStore connects to PostgreSQL and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config) (*postgres.Pool, *postgres.Store, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, store, err := postgres.Open(ctx, &cfg.Database, cfg.Embedding.Dim)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, store, nil
}

// newService builds the attendance service. The look-alike index is only
// loaded when withIndex is set since one-shot commands never enroll.
func newService(ctx context.Context, cfg *config.Config, store database.Store, withIndex bool) *attendance.Service {
	var index *database.MemberIndex
	if withIndex {
		index = database.NewMemberIndex()
	}
	svc := attendance.NewService(store, index, attendance.Options{
		EmbeddingDim:        cfg.Embedding.Dim,
		LookAlikeSimilarity: cfg.Matching.LookAlikeSimilarity,
	})
	if withIndex {
		if err := svc.LoadIndex(ctx); err != nil {
			fmt.Printf("Warning: failed to build look-alike index: %v\n", err)
		} else {
			fmt.Printf("Look-alike index built with %d members\n", index.Count())
		}
	}
	return svc
}
