package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply defaults and environment
overrides, and report every violated constraint (not just the first).

Examples:
  # Validate the default config
  ganymede validate

  # Validate a specific file with JSON output
  ganymede validate --config /etc/ganymede/config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

type validationReport struct {
	Valid      bool     `json:"valid"`
	ConfigFile string   `json:"config_file"`
	Providers  []string `json:"providers,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	report := validationReport{Valid: true, ConfigFile: cfgFile}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			report.Valid = false
			for _, fe := range verr.Errors {
				report.Violations = append(report.Violations, fe.Error())
			}
		} else {
			return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
		}
	} else {
		for name := range cfg.Providers {
			report.Providers = append(report.Providers, name)
		}
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
			return err
		}
	} else {
		if report.Valid {
			fmt.Printf("✓ Configuration valid (%s)\n", cfgFile)
			if len(report.Providers) > 0 {
				fmt.Printf("  providers: %v\n", report.Providers)
			}
		} else {
			fmt.Printf("✗ Configuration invalid (%s)\n", cfgFile)
			for _, v := range report.Violations {
				fmt.Printf("  - %s\n", v)
			}
		}
	}

	if !report.Valid {
		return cli.NewCommandError("validate", fmt.Errorf("%d violation(s)", len(report.Violations)))
	}
	return nil
}
