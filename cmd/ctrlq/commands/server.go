package commands

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ptarmiganlabs/ctrlq/config"
	"github.com/ptarmiganlabs/ctrlq/logger"
	"github.com/ptarmiganlabs/ctrlq/server"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// ServerCmd starts the task graph visualization server.
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the task graph visualization server",
	Long: `Launch a local web server that renders the QSEoW task network as an
interactive dependency graph. The graph is rebuilt from the Repository
periodically and on client request.`,
	RunE: runServerCmd,
}

var serverPort int

func init() {
	ServerCmd.Flags().IntVar(&serverPort, "port", 0, "HTTP port (0 = config value)")
	config.GetViper().BindPFlag("server.port", ServerCmd.Flags().Lookup("port"))
}

func runServerCmd(cmd *cobra.Command, args []string) error {
	conn, err := connect()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	port := conn.cfg.Server.Port
	if port == 0 {
		port = config.DefaultServerPort
	}
	addr := fmt.Sprintf(":%d", port)

	builder := func(ctx context.Context) (*taskgraph.Model, error) {
		return taskgraph.BuildFromRepository(ctx, conn.client, logger.Logger)
	}

	pterm.Info.Printf("Task graph server starting on http://localhost:%d\n", port)
	return server.New(addr, builder, logger.Logger).Run(ctx)
}
