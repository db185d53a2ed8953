package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/credential"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API token in the system keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <token>",
		Short: "Store the API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Set(credential.TokenKey, args[0]); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(credential.TokenKey); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token removed")
			return nil
		},
	})

	return cmd
}
