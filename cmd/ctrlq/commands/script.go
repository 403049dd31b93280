package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptarmiganlabs/ctrlq/engine"
	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/logger"
)

// ScriptCmd groups app load script operations.
var ScriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Fetch app load scripts from the engine",
}

var scriptGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the load script of an app",
	Long: `Open a session against the Engine API and print the app's load
script to stdout. The script goes to stdout and logs to stderr, so the
output can be piped or redirected.`,
	RunE: runScriptGet,
}

var scriptAppID string

func init() {
	scriptGetCmd.Flags().StringVar(&scriptAppID, "app-id", "", "App GUID")
	scriptGetCmd.MarkFlagRequired("app-id")
	ScriptCmd.AddCommand(scriptGetCmd)
}

func runScriptGet(cmd *cobra.Command, args []string) error {
	conn, err := connect()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	// Verify the app exists before opening an engine session; the QRS
	// error is clearer than the engine's
	if _, err := conn.client.GetAppByID(ctx, scriptAppID); err != nil {
		return errors.Wrapf(err, "app %s", scriptAppID)
	}

	script, err := engine.GetLoadScript(ctx, conn.session, scriptAppID, logger.Logger)
	if err != nil {
		return err
	}
	fmt.Println(script)
	return nil
}
