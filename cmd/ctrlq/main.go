package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ptarmiganlabs/ctrlq/cmd/ctrlq/commands"
	"github.com/ptarmiganlabs/ctrlq/config"
	"github.com/ptarmiganlabs/ctrlq/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ctrlq",
	Short: "Ctrl-Q - task management for Qlik Sense Enterprise on Windows",
	Long: `Ctrl-Q - bulk task management for Qlik Sense Enterprise on Windows.

Ctrl-Q talks to the Qlik Repository Service to read, visualize, export and
bulk-create reload task networks, including their schedule and composite
triggers and the apps they reload.

Available commands:
  task    - Get, import and modify reload/external program tasks
  script  - Fetch app load scripts from the engine
  server  - Start the task graph visualization server
  version - Show version information

Examples:
  ctrlq task get --output-format tree        # Show the task network as a tree
  ctrlq task import --file-name tasks.xlsx   # Bulk-create tasks from a spreadsheet
  ctrlq script get --app-id <guid>           # Print an app's load script
  ctrlq server                               # Start the visualization server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(verbosity, jsonLog); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON instead of console output")

	// Connection flags; bound into viper so they override CTRLQ_* env
	// variables and the config file
	v := config.GetViper()
	pf := rootCmd.PersistentFlags()
	pf.String("host", "", "QSEoW host name or IP")
	pf.Int("qrs-port", config.DefaultRepoPort, "Repository API port")
	pf.Int("engine-port", config.DefaultEnginePort, "Engine API port")
	pf.String("virtual-proxy", "", "Virtual proxy prefix")
	pf.Bool("secure", true, "Verify the server TLS certificate")
	pf.String("auth-type", "cert", "Authentication type (cert or jwt)")
	pf.String("auth-cert-file", "", "Client certificate file (PEM)")
	pf.String("auth-cert-key-file", "", "Client certificate key file (PEM)")
	pf.String("auth-root-cert-file", "", "Root CA certificate file (PEM)")
	pf.String("auth-jwt", "", "JWT for virtual proxy authentication")
	pf.String("auth-user-dir", "", "User directory for the X-Qlik-User header")
	pf.String("auth-user-id", "", "User id for the X-Qlik-User header")

	v.BindPFlag("sense.host", pf.Lookup("host"))
	v.BindPFlag("sense.repo_port", pf.Lookup("qrs-port"))
	v.BindPFlag("sense.engine_port", pf.Lookup("engine-port"))
	v.BindPFlag("sense.virtual_proxy", pf.Lookup("virtual-proxy"))
	v.BindPFlag("sense.secure", pf.Lookup("secure"))
	v.BindPFlag("sense.auth_type", pf.Lookup("auth-type"))
	v.BindPFlag("sense.cert.cert_file", pf.Lookup("auth-cert-file"))
	v.BindPFlag("sense.cert.key_file", pf.Lookup("auth-cert-key-file"))
	v.BindPFlag("sense.cert.root_file", pf.Lookup("auth-root-cert-file"))
	v.BindPFlag("sense.jwt", pf.Lookup("auth-jwt"))
	v.BindPFlag("sense.user_directory", pf.Lookup("auth-user-dir"))
	v.BindPFlag("sense.user_id", pf.Lookup("auth-user-id"))

	rootCmd.AddCommand(commands.TaskCmd)
	rootCmd.AddCommand(commands.ScriptCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
