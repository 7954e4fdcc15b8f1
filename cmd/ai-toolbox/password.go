package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/ai-toolbox/internal/service/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for admin.passwordHash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
