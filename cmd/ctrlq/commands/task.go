package commands

import (
	"github.com/spf13/cobra"
)

// TaskCmd groups the task subcommands.
var TaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Get, import and modify reload and external program tasks",
	Long: `Work with the QSEoW task network: show it as a tree or table, export
task definitions to a file, bulk-create tasks from a spreadsheet or CSV
file, and update task custom properties.`,
}

func init() {
	TaskCmd.AddCommand(taskGetCmd)
	TaskCmd.AddCommand(taskImportCmd)
	TaskCmd.AddCommand(taskCustomPropertyCmd)
}
