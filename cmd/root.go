package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veriface",
	Short: "Face recognition attendance for events and their sessions",
	Long: `Veriface tracks who attended which session of an event. Members are
enrolled with a reference face; at check-in a photo is matched against the
session roster and the best match above the threshold is marked present.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
