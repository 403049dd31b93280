package taskgraph

import (
	"fmt"
	"strings"
)

// TreeOptions selects the per-node decorations of the tree projection.
type TreeOptions struct {
	ShowID            bool
	ShowLastStatus    bool
	ShowAppName       bool
	ShowNextExecution bool
	ShowTags          bool
	MaxDepth          int
}

// TreeNode is a renderer-neutral tree vertex. The command layer turns it
// into terminal output or a JSON document.
type TreeNode struct {
	Text     string      `json:"text"`
	Children []*TreeNode `json:"children,omitempty"`
}

// RuleStateName returns the display name of a composite rule state.
func RuleStateName(state int) string {
	switch state {
	case 1:
		return "TaskSuccessful"
	case 2:
		return "TaskFail"
	default:
		return fmt.Sprintf("state %d", state)
	}
}

// Tree renders the whole graph as a tree: one subtree per root (task with
// no incoming composite edge) plus a synthetic super-root that collects
// every task carrying at least one schedule trigger. A task reachable from
// several roots appears once per causal chain; this is a tree, not a DAG.
func (m *Model) Tree(opts TreeOptions) []*TreeNode {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	var out []*TreeNode

	scheduled := &TreeNode{Text: "Scheduled tasks"}
	for _, t := range m.Tasks() {
		if len(t.ScheduleTriggers) > 0 {
			scheduled.Children = append(scheduled.Children, m.treeNode(t, "", opts, map[string]bool{}, opts.MaxDepth))
		}
	}
	out = append(out, scheduled)

	for _, root := range m.RootsFromFilter(Filter{}) {
		out = append(out, m.treeNode(root, "", opts, map[string]bool{}, opts.MaxDepth))
	}
	return out
}

// TreeFrom renders one decorated subtree per given root, for filtered
// views of the graph.
func (m *Model) TreeFrom(roots []*Task, opts TreeOptions) []*TreeNode {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	var out []*TreeNode
	for _, root := range roots {
		out = append(out, m.treeNode(root, "", opts, map[string]bool{}, opts.MaxDepth))
	}
	return out
}

// treeNode renders one task with its meta-node children: schedule triggers
// first, then downstream tasks annotated with the composite event and rule
// state that connect them.
func (m *Model) treeNode(t *Task, annotation string, opts TreeOptions, onPath map[string]bool, depth int) *TreeNode {
	node := &TreeNode{Text: m.decorate(t, annotation, opts)}
	if depth == 0 {
		return node
	}
	onPath[t.ID] = true
	defer delete(onPath, t.ID)

	for _, trig := range t.ScheduleTriggers {
		node.Children = append(node.Children, &TreeNode{
			Text: fmt.Sprintf("⏰ %s [%s]", trig.Name, IncrementName(trig.IncrementOption)),
		})
	}

	for _, e := range m.Edges() {
		if e.UpstreamID != t.ID {
			continue
		}
		child, ok := m.tasks[e.DownstreamID]
		if !ok {
			continue
		}
		ann := fmt.Sprintf("on %s via %q", RuleStateName(e.State), e.EventName)
		if onPath[child.ID] {
			node.Children = append(node.Children, &TreeNode{
				Text: fmt.Sprintf("↺ circular reference to %s", child.Name),
			})
			continue
		}
		node.Children = append(node.Children, m.treeNode(child, ann, opts, onPath, depth-1))
	}
	return node
}

func (m *Model) decorate(t *Task, annotation string, opts TreeOptions) string {
	parts := []string{t.Name}
	if t.Tombstone {
		parts = []string{fmt.Sprintf("⚠ %s (not found in Repository)", t.ID)}
	}
	if opts.ShowID {
		parts = append(parts, fmt.Sprintf("id=%s", t.ID))
	}
	if opts.ShowLastStatus && t.LastStatus != "" {
		parts = append(parts, fmt.Sprintf("last=%s", t.LastStatus))
	}
	if opts.ShowAppName && t.AppName != "" {
		parts = append(parts, fmt.Sprintf("app=%s", t.AppName))
	}
	if opts.ShowNextExecution && t.NextExecution != "" && t.NextExecution != "1753-01-01T00:00:00.000Z" {
		parts = append(parts, fmt.Sprintf("next=%s", t.NextExecution))
	}
	if opts.ShowTags && len(t.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("tags=%s", strings.Join(t.Tags, "/")))
	}
	text := strings.Join(parts, " · ")
	if annotation != "" {
		text = fmt.Sprintf("%s (%s)", text, annotation)
	}
	return text
}

// IncrementName returns the display name of a schema increment option.
func IncrementName(opt int) string {
	switch opt {
	case 0:
		return "once"
	case 1:
		return "hourly"
	case 2:
		return "daily"
	case 3:
		return "weekly"
	case 4:
		return "monthly"
	case 5:
		return "custom"
	default:
		return fmt.Sprintf("increment %d", opt)
	}
}
