package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ptarmiganlabs/ctrlq/config"
	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/logger"
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
	"github.com/ptarmiganlabs/ctrlq/taskimport"
)

var taskImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-create tasks from a CSV or Excel file",
	Long: `Read task definitions from a tabular source and create them in the
Repository: apps are uploaded first (when --import-app is set), then tasks
with their schedule triggers in source order, then composite triggers once
every upstream task exists. The whole source is validated before anything
is created; --dry-run shows the payloads without creating anything.`,
	RunE: runTaskImport,
}

var (
	importFileType     string
	importFileName     string
	importSheetName    string
	importColRefBy     string
	importApps         bool
	importAppSheetName string
	importLimit        int
	importSleepMs      int
	importUpdateMode   string
	importDryRun       bool
)

func init() {
	f := taskImportCmd.Flags()
	f.StringVar(&importFileType, "file-type", "excel", "Source file type (excel or csv)")
	f.StringVar(&importFileName, "file-name", "", "Source file name")
	f.StringVar(&importSheetName, "sheet-name", "Tasks", "Sheet with task definitions (Excel only)")
	f.StringVar(&importColRefBy, "col-ref-by", "name", "Address source columns by 'name' or 'position'")
	f.BoolVar(&importApps, "import-app", false, "Also upload apps from the app sheet before creating tasks")
	f.StringVar(&importAppSheetName, "import-app-sheet-name", "Apps", "Sheet with app definitions (Excel only)")
	f.IntVar(&importLimit, "limit-import-count", 0, "Only import tasks with Task counter <= N (0 = no limit)")
	f.IntVar(&importSleepMs, "sleep-app-upload", 0, "Milliseconds to sleep between app uploads (0 = config value)")
	f.StringVar(&importUpdateMode, "update-mode", taskimport.UpdateModeCreate, "Update mode (only create is supported)")
	f.BoolVar(&importDryRun, "dry-run", false, "Resolve and print payloads without creating anything")
	taskImportCmd.MarkFlagRequired("file-name")
}

func runTaskImport(cmd *cobra.Command, args []string) error {
	mode, err := taskimport.ParseRefMode(importColRefBy)
	if err != nil {
		return err
	}

	conn, err := connect()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	// Parse and validate everything before touching the Repository
	src, err := readSource(importFileName, importSheetName)
	if err != nil {
		return err
	}
	limit := importLimit
	if limit == 0 {
		limit = conn.cfg.Import.LimitImportCount
	}
	tasks, err := taskimport.ParseTasks(src, mode, limit, logger.Logger)
	if err != nil {
		return err
	}

	var apps []taskimport.AppRecord
	if importApps {
		appSrc, err := readSource(importFileName, importAppSheetName)
		if err != nil {
			return err
		}
		if apps, err = taskimport.ParseApps(appSrc, logger.Logger); err != nil {
			return err
		}
	}

	caches, err := qrs.WarmCaches(ctx, conn.client)
	if err != nil {
		return err
	}
	model, err := taskgraph.BuildFromRepository(ctx, conn.client, logger.Logger)
	if err != nil {
		return err
	}

	resolver := taskimport.NewResolver(caches, model, conn.client, logger.Logger)
	importer, err := taskimport.NewImporter(conn.client, resolver, taskimport.Options{
		DryRun:         importDryRun,
		SleepAppUpload: sleepAppUpload(conn.cfg),
		UpdateMode:     importUpdateMode,
	}, logger.Logger)
	if err != nil {
		return err
	}

	res, err := importer.Run(ctx, apps, tasks)
	if err != nil {
		return err
	}

	// Re-read the task network so cycles or duplicate triggers closed by
	// this import surface as warnings, not as a failed run
	if !importDryRun {
		if model, err = taskgraph.BuildFromRepository(ctx, conn.client, logger.Logger); err != nil {
			return err
		}
	}
	warnGraphIssues(model)

	pterm.Success.Printf("Import finished: %d apps uploaded, %d tasks created, %d composite events created\n",
		res.AppsUploaded, res.TasksCreated, res.CompositeEventsCreated)
	if len(res.Failures) > 0 {
		pterm.Warning.Printf("%d items failed:\n", len(res.Failures))
		for _, f := range res.Failures {
			pterm.Warning.Printf("  [%s] %s (row %d): %v\n", f.Phase, f.Subject, f.Row, f.Err)
		}
		return errors.ValidationErrorf("%d of the imported items failed", len(res.Failures))
	}
	return nil
}

func readSource(path, sheet string) (*taskimport.Source, error) {
	switch importFileType {
	case "excel":
		return taskimport.ReadExcel(path, sheet)
	case "csv":
		return taskimport.ReadCSV(path)
	default:
		return nil, errors.ValidationErrorf("file-type must be 'excel' or 'csv', got %q", importFileType)
	}
}

func sleepAppUpload(cfg *config.Config) time.Duration {
	ms := importSleepMs
	if ms == 0 {
		ms = cfg.Import.SleepAppUploadMs
	}
	return time.Duration(ms) * time.Millisecond
}
