package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the pawswipe CLI configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file at ~/.pawswipe/config.yaml

Example:
  pawswipe config init`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		configPath, _ := cli.GetConfigPath()
		fmt.Printf("Configuration file created at: %s\n", configPath)
		fmt.Println("\nSet an api_key on a profile to read decisions or use admin commands:")
		fmt.Println("  pawswipe config set shelter.api_key psk_...")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("Default profile: %s\n\n", cfg.DefaultProfile)
		fmt.Println("Profiles:")
		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := cfg.Profiles[name]
			fmt.Printf("  %s:\n", name)
			fmt.Printf("    base_url: %s\n", p.BaseURL)
			fmt.Printf("    api_key: %s\n", maskKey(p.APIKey))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <profile.key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  pawswipe config get local.base_url
  pawswipe config get shelter.api_key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		name, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}

		p, ok := cfg.Profiles[name]
		if !ok {
			return fmt.Errorf("profile '%s' not found", name)
		}
		switch key {
		case "base_url":
			fmt.Println(p.BaseURL)
		case "api_key":
			fmt.Println(p.APIKey)
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <profile.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value. Use the key "default_profile" to
change the profile used when --profile is omitted.

Examples:
  pawswipe config set local.base_url http://localhost:8080
  pawswipe config set shelter.api_key psk_...
  pawswipe config set default_profile shelter`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		value := args[1]

		if args[0] == "default_profile" {
			cfg.DefaultProfile = value
		} else {
			name, key, err := splitConfigKey(args[0])
			if err != nil {
				return err
			}
			p := cfg.Profiles[name]
			switch key {
			case "base_url":
				p.BaseURL = value
			case "api_key":
				p.APIKey = value
			default:
				return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
			}
			cfg.Profiles[name] = p
		}

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Set %s\n", args[0])
		return nil
	},
}

func splitConfigKey(s string) (profile, key string, err error) {
	profile, key, ok := strings.Cut(s, ".")
	if !ok || profile == "" || key == "" {
		return "", "", fmt.Errorf("invalid key format, expected 'profile.key' (e.g., 'local.base_url')")
	}
	return profile, key, nil
}

func maskKey(k string) string {
	switch {
	case k == "":
		return "(none)"
	case len(k) > 8:
		return k[:8] + "***"
	default:
		return "***"
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configListCmd, configGetCmd, configSetCmd)
}
