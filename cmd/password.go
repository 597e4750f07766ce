package cmd

import (
	"fmt"

	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/credential"
	"github.com/spf13/cobra"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Generate a random initial password",
	Long: `Generate a password of the kind handed to imported members. It always
contains at least one uppercase letter, lowercase letter, digit and symbol.`,
	Args: cobra.NoArgs,
	RunE: runPassword,
}

func init() {
	rootCmd.AddCommand(passwordCmd)

	passwordCmd.Flags().Int("length", constants.DefaultPasswordLength, "Password length")
	passwordCmd.Flags().Bool("hash", false, "Also print the bcrypt hash")
}

func runPassword(cmd *cobra.Command, args []string) error {
	pw, err := credential.GeneratePassword(mustGetInt(cmd, "length"))
	if err != nil {
		return err
	}
	fmt.Println(pw)

	if mustGetBool(cmd, "hash") {
		hash, err := credential.NewBcryptHasher().Hash(pw)
		if err != nil {
			return err
		}
		fmt.Println(hash)
	}
	return nil
}
