package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/logger"
	"github.com/ptarmiganlabs/ctrlq/qrs"
)

var taskCustomPropertyCmd = &cobra.Command{
	Use:   "custom-property",
	Short: "Update custom properties on reload tasks",
}

var taskCustomPropertySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a custom property value on one or more reload tasks",
	Long: `Set a custom property value on reload tasks selected by GUID or tag.
With --update-mode append the value is added to the tasks' existing values
of that property; with replace it becomes the only value.`,
	RunE: runTaskCustomPropertySet,
}

var (
	cpName       string
	cpValues     []string
	cpTaskIDs    []string
	cpTaskTags   []string
	cpUpdateMode string
)

func init() {
	f := taskCustomPropertySetCmd.Flags()
	f.StringVar(&cpName, "custom-property-name", "", "Name of the custom property")
	f.StringSliceVar(&cpValues, "custom-property-value", nil, "Value(s) to set")
	f.StringSliceVar(&cpTaskIDs, "task-id", nil, "Task GUID(s) to update")
	f.StringSliceVar(&cpTaskTags, "task-tag", nil, "Task tag(s) selecting tasks to update")
	f.StringVar(&cpUpdateMode, "update-mode", "append", "How to combine with existing values (append or replace)")
	taskCustomPropertySetCmd.MarkFlagRequired("custom-property-name")
	taskCustomPropertySetCmd.MarkFlagRequired("custom-property-value")

	taskCustomPropertyCmd.AddCommand(taskCustomPropertySetCmd)
}

func runTaskCustomPropertySet(cmd *cobra.Command, args []string) error {
	if cpUpdateMode != "append" && cpUpdateMode != "replace" {
		return errors.ValidationErrorf("update-mode must be 'append' or 'replace', got %q", cpUpdateMode)
	}
	if len(cpTaskIDs) == 0 && len(cpTaskTags) == 0 {
		return errors.ValidationErrorf("at least one of --task-id or --task-tag is required")
	}

	conn, err := connect()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	caches, err := qrs.WarmCaches(ctx, conn.client)
	if err != nil {
		return err
	}
	def, ok := caches.CustomPropertyByName(cpName)
	if !ok {
		return errors.ValidationErrorf("custom property %q does not exist on the server", cpName)
	}
	values := make([]qrs.CustomPropertyValue, 0, len(cpValues))
	for _, v := range cpValues {
		if !containsValue(def.ChoiceValues, v) {
			return errors.ValidationErrorf("value %q is not among the choices of custom property %q", v, cpName)
		}
		values = append(values, qrs.CustomPropertyValue{Definition: def, Value: v})
	}

	tasks, err := selectReloadTasks(ctx, conn)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return errors.Wrapf(errors.ErrNotFound, "no reload tasks match the given ids/tags")
	}

	updated := 0
	for i := range tasks {
		task := &tasks[i]
		task.CustomProperties = mergeProperties(task.CustomProperties, values, def.Name, cpUpdateMode)
		if err := conn.client.UpdateReloadTask(ctx, task); err != nil {
			logger.Errorw("Failed to update task", "task", task.Name, "id", task.ID, "error", err)
			continue
		}
		updated++
		logger.Infow("Custom property updated", "task", task.Name, "property", cpName)
	}

	pterm.Success.Printf("Updated custom property %q on %d of %d tasks\n", cpName, updated, len(tasks))
	if updated < len(tasks) {
		return errors.ValidationErrorf("%d tasks failed to update", len(tasks)-updated)
	}
	return nil
}

// selectReloadTasks fetches the reload tasks matching the id/tag flags,
// de-duplicated by GUID.
func selectReloadTasks(ctx context.Context, conn *connection) ([]qrs.ReloadTask, error) {
	seen := make(map[string]bool)
	var out []qrs.ReloadTask

	add := func(tasks []qrs.ReloadTask) {
		for _, t := range tasks {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}

	for _, id := range cpTaskIDs {
		tasks, err := conn.client.ListReloadTasks(ctx, "id eq "+id)
		if err != nil {
			return nil, err
		}
		add(tasks)
	}
	for _, tag := range cpTaskTags {
		tasks, err := conn.client.ListReloadTasks(ctx, "tags.name eq '"+tag+"'")
		if err != nil {
			return nil, err
		}
		add(tasks)
	}
	return out, nil
}

// mergeProperties applies the update mode for one property, leaving values
// of other properties untouched.
func mergeProperties(current, incoming []qrs.CustomPropertyValue, name, mode string) []qrs.CustomPropertyValue {
	var out []qrs.CustomPropertyValue
	for _, cp := range current {
		if cp.Definition.Name == name && mode == "replace" {
			continue
		}
		out = append(out, cp)
	}
	for _, v := range incoming {
		duplicate := false
		for _, cp := range out {
			if cp.Definition.Name == name && cp.Value == v.Value {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, v)
		}
	}
	return out
}

func containsValue(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
