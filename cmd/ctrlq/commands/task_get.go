package commands

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/logger"
	"github.com/ptarmiganlabs/ctrlq/taskexport"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

var taskGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the task network as a tree or table, or export it to a file",
	Long: `Fetch reload and external program tasks from the Repository and show
them as a dependency tree or a table. With --output-dest file the task
definitions are written in the import grammar, so the file can be replayed
with "ctrlq task import" against another cluster.`,
	RunE: runTaskGet,
}

var (
	getTaskIDs      []string
	getTaskTags     []string
	getAppIDs       []string
	getAppTags      []string
	getOutputFormat string
	getOutputDest   string
	getFileName     string
	getFileFormat   string
	getSheetName    string
	getOverwrite    bool
	getTreeDetails  []string
	getTableDetails []string
	getMaxDepth     int
)

func init() {
	f := taskGetCmd.Flags()
	f.StringSliceVar(&getTaskIDs, "task-id", nil, "Task GUID(s) to start from")
	f.StringSliceVar(&getTaskTags, "task-tag", nil, "Task tag(s) to start from")
	f.StringSliceVar(&getAppIDs, "app-id", nil, "App GUID(s) whose tasks to start from")
	f.StringSliceVar(&getAppTags, "app-tag", nil, "App tag(s) whose tasks to start from")
	f.StringVar(&getOutputFormat, "output-format", "tree", "Screen output format (tree or table)")
	f.StringVar(&getOutputDest, "output-dest", "screen", "Output destination (screen or file)")
	f.StringVar(&getFileName, "output-file-name", "", "Output file name (with --output-dest file)")
	f.StringVar(&getFileFormat, "output-file-format", "excel", "Output file format (excel, csv or json)")
	f.StringVar(&getSheetName, "sheet-name", "Tasks", "Sheet name for Excel output")
	f.BoolVar(&getOverwrite, "output-file-overwrite", false, "Overwrite existing output file without asking")
	f.StringSliceVar(&getTreeDetails, "tree-details", nil,
		"Extra tree details (taskid, laststatus, appname, nextexecution, tags)")
	f.StringSliceVar(&getTableDetails, "table-details", nil,
		"Table column blocks (common, lastexecution, tag, customproperty, schematrigger, compositetrigger)")
	f.IntVar(&getMaxDepth, "max-depth", 0, "Maximum tree traversal depth (0 = default)")
}

func runTaskGet(cmd *cobra.Command, args []string) error {
	conn, err := connect()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	model, err := taskgraph.BuildFromRepository(ctx, conn.client, logger.Logger)
	if err != nil {
		return err
	}
	if len(getAppTags) > 0 {
		if err := seedAppTags(ctx, conn, model); err != nil {
			return err
		}
	}
	warnGraphIssues(model)

	filter := taskgraph.Filter{
		TaskIDs:  getTaskIDs,
		TaskTags: getTaskTags,
		AppIDs:   getAppIDs,
		AppTags:  getAppTags,
	}
	roots := model.RootsFromFilter(filter)
	tasks := selectTasks(model, filter, roots)

	if getOutputDest == "file" {
		return writeTaskFile(model, tasks)
	}

	switch getOutputFormat {
	case "tree":
		return renderTree(model, filter, roots)
	case "table":
		return renderTable(model, tasks)
	default:
		return errors.ValidationErrorf("output-format must be 'tree' or 'table', got %q", getOutputFormat)
	}
}

// seedAppTags fetches app tag sets so app-tag filter terms resolve.
func seedAppTags(ctx context.Context, conn *connection, model *taskgraph.Model) error {
	apps, err := conn.client.ListApps(ctx)
	if err != nil {
		return err
	}
	for _, app := range apps {
		tags := make([]string, 0, len(app.Tags))
		for _, tag := range app.Tags {
			tags = append(tags, tag.Name)
		}
		model.SetAppTags(app.ID, tags)
	}
	return nil
}

func selectTasks(model *taskgraph.Model, filter taskgraph.Filter, roots []*taskgraph.Task) []*taskgraph.Task {
	if filter.IsEmpty() {
		return model.Tasks()
	}
	seen := make(map[string]bool)
	var tasks []*taskgraph.Task
	for _, root := range roots {
		for _, t := range model.Subtree(root, getMaxDepth).Flatten() {
			if !seen[t.ID] {
				seen[t.ID] = true
				tasks = append(tasks, t)
			}
		}
	}
	return tasks
}

func treeOptions() taskgraph.TreeOptions {
	opts := taskgraph.TreeOptions{MaxDepth: getMaxDepth}
	for _, d := range getTreeDetails {
		switch strings.ToLower(strings.TrimSpace(d)) {
		case "taskid":
			opts.ShowID = true
		case "laststatus":
			opts.ShowLastStatus = true
		case "appname":
			opts.ShowAppName = true
		case "nextexecution":
			opts.ShowNextExecution = true
		case "tags":
			opts.ShowTags = true
		}
	}
	return opts
}

func renderTree(model *taskgraph.Model, filter taskgraph.Filter, roots []*taskgraph.Task) error {
	var nodes []*taskgraph.TreeNode
	if filter.IsEmpty() {
		nodes = model.Tree(treeOptions())
	} else {
		nodes = model.TreeFrom(roots, treeOptions())
	}
	for _, n := range nodes {
		if err := pterm.DefaultTree.WithRoot(toPtermNode(n)).Render(); err != nil {
			return errors.Wrap(err, "failed to render tree")
		}
	}
	return nil
}

func toPtermNode(n *taskgraph.TreeNode) pterm.TreeNode {
	out := pterm.TreeNode{Text: n.Text}
	for _, c := range n.Children {
		out.Children = append(out.Children, toPtermNode(c))
	}
	return out
}

func renderTable(model *taskgraph.Model, tasks []*taskgraph.Task) error {
	header, rows, err := model.Table(getTableDetails, tasks)
	if err != nil {
		return err
	}
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

// writeTaskFile exports task definitions in the import grammar.
func writeTaskFile(model *taskgraph.Model, tasks []*taskgraph.Task) error {
	if getFileName == "" {
		return errors.ConfigurationErrorf("--output-file-name is required with --output-dest file")
	}
	if err := confirmOverwrite(getFileName, getOverwrite); err != nil {
		return err
	}

	table := taskexport.Build(model, tasks, logger.Logger)
	switch getFileFormat {
	case "excel":
		if err := table.WriteExcel(getFileName, getSheetName); err != nil {
			return err
		}
	case "csv":
		if err := table.WriteCSV(getFileName); err != nil {
			return err
		}
	case "json":
		if err := table.WriteJSON(getFileName); err != nil {
			return err
		}
	default:
		return errors.ValidationErrorf("output-file-format must be excel, csv or json, got %q", getFileFormat)
	}

	pterm.Success.Printf("Exported %d tasks to %s\n", len(tasks), getFileName)
	return nil
}
