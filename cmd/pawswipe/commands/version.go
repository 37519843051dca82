package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI and server versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("client: %s\n", version.Version)

		c, err := newClient()
		if err != nil {
			// No server configured; the client version is still useful.
			return nil
		}
		server, err := c.ServerVersion(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reach server: %w", err)
		}
		fmt.Printf("server: %s\n", server)

		ok, err := version.Compatible(version.Version, server)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "warning: client and server versions are incompatible")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Version
}
