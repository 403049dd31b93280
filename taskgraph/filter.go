package taskgraph

// Filter selects the initial task set for root discovery. The terms are
// combined with union semantics: a task matches when it matches any of
// the four lists.
type Filter struct {
	TaskIDs  []string
	TaskTags []string
	AppIDs   []string
	AppTags  []string
}

// IsEmpty reports whether no filter term is set.
func (f Filter) IsEmpty() bool {
	return len(f.TaskIDs) == 0 && len(f.TaskTags) == 0 && len(f.AppIDs) == 0 && len(f.AppTags) == 0
}

// RootsFromFilter collects the tasks matching any filter term, walks the
// composite-dependency edges in reverse until fixed point, and returns
// the tasks of that closure with no incoming composite edges, de-duplicated
// by GUID. An empty filter starts from every task.
func (m *Model) RootsFromFilter(f Filter) []*Task {
	initial := make(map[string]bool)

	if f.IsEmpty() {
		for _, t := range m.Tasks() {
			initial[t.ID] = true
		}
	} else {
		for _, id := range f.TaskIDs {
			if _, ok := m.tasks[id]; ok {
				initial[id] = true
			}
		}
		for _, tag := range f.TaskTags {
			for _, t := range m.byTag[tag] {
				initial[t.ID] = true
			}
		}
		for _, appID := range f.AppIDs {
			for _, t := range m.byApp[appID] {
				initial[t.ID] = true
			}
		}
		for _, appTag := range f.AppTags {
			for _, t := range m.tasksByAppTag(appTag) {
				initial[t.ID] = true
			}
		}
	}

	upstream := m.upstreamAdjacency()

	// Reverse walk to fixed point
	closure := make(map[string]bool)
	queue := make([]string, 0, len(initial))
	for id := range initial {
		queue = append(queue, id)
		closure[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, up := range upstream[id] {
			if !closure[up] {
				closure[up] = true
				queue = append(queue, up)
			}
		}
	}

	var roots []*Task
	for _, id := range m.order {
		if !closure[id] {
			continue
		}
		if len(upstream[id]) == 0 {
			roots = append(roots, m.tasks[id])
		}
	}
	return roots
}

// tasksByAppTag resolves app-tag filter terms. App tags are not part of
// the task payload, so the model records them at build time through the
// app index; callers seed the index via SetAppTags before filtering.
func (m *Model) tasksByAppTag(tag string) []*Task {
	var out []*Task
	for appID, tags := range m.appTags {
		if !contains(tags, tag) {
			continue
		}
		out = append(out, m.byApp[appID]...)
	}
	return out
}

// SetAppTags records the tag set of an app so appTags filter terms can be
// resolved without another Repository round trip.
func (m *Model) SetAppTags(appID string, tags []string) {
	if m.appTags == nil {
		m.appTags = make(map[string][]string)
	}
	m.appTags[appID] = tags
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SubtreeNode is one vertex of a downstream traversal. Cycle markers are
// vertices with Marker set; recursion halts at the repeating task.
type SubtreeNode struct {
	Task     *Task
	Marker   bool
	Children []*SubtreeNode
}

// DefaultMaxDepth bounds subtree recursion against pathological inputs
const DefaultMaxDepth = 99

// Subtree returns the downstream tasks reachable from root through
// composite edges, as a tree. The same task appears once per distinct
// causal chain. When a cycle is detected the recursion halts at the
// repeating node and emits a marker vertex.
func (m *Model) Subtree(root *Task, maxDepth int) *SubtreeNode {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	downstream := m.downstreamAdjacency()
	onPath := make(map[string]bool)
	return m.subtree(root, downstream, onPath, maxDepth)
}

func (m *Model) subtree(t *Task, downstream map[string][]string, onPath map[string]bool, depth int) *SubtreeNode {
	node := &SubtreeNode{Task: t}
	if depth == 0 {
		return node
	}
	onPath[t.ID] = true
	defer delete(onPath, t.ID)

	seenChild := make(map[string]bool)
	for _, childID := range downstream[t.ID] {
		// A multigraph can carry several rules between the same pair;
		// the subtree shows each downstream task once per parent
		if seenChild[childID] {
			continue
		}
		seenChild[childID] = true

		child, ok := m.tasks[childID]
		if !ok {
			continue
		}
		if onPath[childID] {
			m.log.Warnw("Circular task chain detected",
				"from", t.Name, "to", child.Name)
			node.Children = append(node.Children, &SubtreeNode{Task: child, Marker: true})
			continue
		}
		node.Children = append(node.Children, m.subtree(child, downstream, onPath, depth-1))
	}
	return node
}

// Flatten returns the task set of a subtree, markers excluded,
// de-duplicated by GUID.
func (n *SubtreeNode) Flatten() []*Task {
	seen := make(map[string]bool)
	var out []*Task
	var walk func(*SubtreeNode)
	walk = func(node *SubtreeNode) {
		if !node.Marker && !seen[node.Task.ID] {
			seen[node.Task.ID] = true
			out = append(out, node.Task)
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}
