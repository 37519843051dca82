package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/auth"
)

var keyRole string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Create API keys for a server",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key and its API_KEYS entry",
	Long: `Generate a random API key. Hand the key to the client and append the
printed entry to the server's API_KEYS setting; the server only ever stores
the bcrypt hash.

Example:
  pawswipe keys generate --role readonly`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !auth.ValidateRole(keyRole) {
			return fmt.Errorf("invalid role %q (readonly, admin)", keyRole)
		}
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return err
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Printf("Key:            %s\n", key)
		fmt.Printf("API_KEYS entry: %s:%s\n", keyRole, hash)
		return nil
	},
}

var keysHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Print the bcrypt hash of an existing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd, keysHashCmd)
	keysGenerateCmd.Flags().StringVar(&keyRole, "role", string(auth.RoleReadonly), "Role for the key (readonly, admin)")
}
