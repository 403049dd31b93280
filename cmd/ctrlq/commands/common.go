// Package commands wires the Ctrl-Q CLI surface onto the task-graph core.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/ptarmiganlabs/ctrlq/config"
	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/logger"
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// connection bundles everything a command needs to talk to the cluster.
type connection struct {
	cfg     *config.Config
	session *qrs.Session
	client  *qrs.Client
}

// connect loads the effective configuration and builds a Repository client.
func connect() (*connection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	session, err := qrs.NewSession(&cfg.Sense)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Sense.RequestTimeoutSeconds) * time.Second
	transport := qrs.NewTransport(session, timeout, logger.Logger)
	return &connection{
		cfg:     cfg,
		session: session,
		client:  qrs.NewClient(transport, logger.Logger),
	}, nil
}

// warnGraphIssues reports circular chains and duplicate triggers in the
// task network. They are warnings; the command keeps going.
func warnGraphIssues(model *taskgraph.Model) {
	for _, w := range model.IntegrityWarnings() {
		pterm.Warning.Println(w)
		logger.Warnw("Task network issue", "issue", w)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			logger.Warnf("Interrupt received, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()
	return ctx, cancel
}

// confirmOverwrite checks whether path may be written. When the file
// exists and force is false the user is prompted interactively.
func confirmOverwrite(path string, force bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(errors.ErrConfiguration, "cannot stat output file %q: %v", path, err)
	}
	if force {
		return nil
	}
	ok, err := pterm.DefaultInteractiveConfirm.
		WithDefaultText("File " + path + " exists. Overwrite?").
		Show()
	if err != nil {
		return errors.Wrap(err, "overwrite prompt failed")
	}
	if !ok {
		return errors.ConfigurationErrorf("output file %q exists, not overwriting", path)
	}
	return nil
}
