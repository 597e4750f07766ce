package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags are declared in init(), so a failed lookup is a programming bug and
// the helpers below panic instead of returning an error.

func mustFlag[T any](name string, get func(string) (T, error)) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	return mustFlag(name, cmd.Flags().GetBool)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return mustFlag(name, cmd.Flags().GetInt)
}

func mustGetInt64(cmd *cobra.Command, name string) int64 {
	return mustFlag(name, cmd.Flags().GetInt64)
}

// mustGetChanged returns the flag value and whether it was given on the
// command line. An explicit zero is then distinguishable from "not set".
func mustGetChanged[T any](cmd *cobra.Command, name string, get func(string) (T, error)) (T, bool) {
	return mustFlag(name, get), cmd.Flags().Changed(name)
}
