package main

import (
	"os"

	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/requester"
	"github.com/ajanottaja/identity-bridge/internal/telemetry"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	Execute()
}

// cfg is loaded once flags are parsed, before any subcommand runs.
var cfg *config.Config

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "identity-bridge",
	Short: "Relay identity platform lifecycle hooks to the account API",
	Long: `identity-bridge receives post-registration and post-login notifications from the
identity platform, creates or looks up the matching account in the account API and
returns the account id as a custom token claim.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag || cmd == versionCmd {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}

		loaded, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		if err := logger.InitLogger(&loaded.Logging); err != nil {
			return err
		}
		cfg = loaded
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   func(*cobra.Command, []string) {},
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(serveCmd, mcpCmd, registerCmd, loginCmd, versionCmd)
}

// appOptions wires the shared modules around the loaded config.
func appOptions(extra ...fx.Option) []fx.Option {
	return append([]fx.Option{
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		telemetry.Module,
		requester.Module,
		bridge.Module,
	}, extra...)
}
