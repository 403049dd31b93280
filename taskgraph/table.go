package taskgraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Detail blocks selectable for table output
const (
	BlockCommon           = "common"
	BlockLastExecution    = "lastexecution"
	BlockTag              = "tag"
	BlockCustomProperty   = "customproperty"
	BlockSchemaTrigger    = "schematrigger"
	BlockCompositeTrigger = "compositetrigger"
)

var allBlocks = []string{
	BlockCommon, BlockLastExecution, BlockTag,
	BlockCustomProperty, BlockSchemaTrigger, BlockCompositeTrigger,
}

// Table projects the given tasks into a header plus rows, with column
// blocks selected by the caller. An empty block list selects everything.
func (m *Model) Table(blocks []string, tasks []*Task) ([]string, [][]string, error) {
	if len(blocks) == 0 {
		blocks = allBlocks
	}
	selected := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if !contains(allBlocks, b) {
			return nil, nil, errors.ValidationErrorf("unknown table detail block %q", b)
		}
		selected[b] = true
	}

	var header []string
	header = append(header, "Task id", "Task name", "Task type", "Task enabled")
	if selected[BlockCommon] {
		header = append(header,
			"Task timeout", "Task retries",
			"App id", "App name", "Partial reload", "Manually triggered",
			"Path", "Parameters")
	}
	if selected[BlockLastExecution] {
		header = append(header, "Last execution status", "Next execution")
	}
	if selected[BlockTag] {
		header = append(header, "Tags")
	}
	if selected[BlockCustomProperty] {
		header = append(header, "Custom properties")
	}
	if selected[BlockSchemaTrigger] {
		header = append(header, "Schema triggers")
	}
	if selected[BlockCompositeTrigger] {
		header = append(header, "Composite triggers")
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		if t.Tombstone {
			continue
		}
		row := []string{t.ID, t.Name, t.Kind.String(), bool01(t.Enabled)}
		if selected[BlockCommon] {
			row = append(row,
				strconv.Itoa(t.SessionTimeout), strconv.Itoa(t.MaxRetries),
				t.AppID, t.AppName, bool01(t.IsPartialReload), bool01(t.IsManuallyTriggered),
				t.Path, t.Parameters)
		}
		if selected[BlockLastExecution] {
			row = append(row, t.LastStatus, t.NextExecution)
		}
		if selected[BlockTag] {
			row = append(row, strings.Join(t.Tags, " / "))
		}
		if selected[BlockCustomProperty] {
			row = append(row, formatProperties(t.CustomProperties))
		}
		if selected[BlockSchemaTrigger] {
			row = append(row, formatScheduleTriggers(t.ScheduleTriggers))
		}
		if selected[BlockCompositeTrigger] {
			row = append(row, m.formatCompositeTriggers(t.CompositeTriggers))
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func bool01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatProperties(props []PropertyValue) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, fmt.Sprintf("%s=%s", p.Name, p.Value))
	}
	return strings.Join(parts, " / ")
}

func formatScheduleTriggers(triggers []ScheduleTrigger) string {
	parts := make([]string, 0, len(triggers))
	for _, trig := range triggers {
		parts = append(parts, fmt.Sprintf("%s [%s]", trig.Name, IncrementName(trig.IncrementOption)))
	}
	return strings.Join(parts, " / ")
}

func (m *Model) formatCompositeTriggers(triggers []CompositeTrigger) string {
	parts := make([]string, 0, len(triggers))
	for _, trig := range triggers {
		rules := make([]string, 0, len(trig.Rules))
		for _, r := range trig.Rules {
			rules = append(rules, fmt.Sprintf("%s:%s", m.taskName(r.UpstreamID), RuleStateName(r.State)))
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", trig.Name, strings.Join(rules, " AND ")))
	}
	return strings.Join(parts, " / ")
}
