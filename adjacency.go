package dagedit

import (
	"fmt"
	"strings"
)

// SerializeAdjacencyList renders g as canonical adjacency text: one line per
// node, in node insertion order, of the form
//
//	<label>: <target1>, <target2>, ...
//
// Targets follow edge insertion order. A node without outgoing edges is
// written as "<label>: ". The same graph always yields byte-identical text.
//
// The text form is label-addressed, so g must be valid and its labels must be
// unique, non-empty, free of surrounding blanks, and contain no ':' ',' or
// line breaks. Otherwise the error is a *RejectedError or wraps
// ErrUnencodableLabel.
func SerializeAdjacencyList(g Graph) (string, error) {
	if err := Validate(g).Err(); err != nil {
		return "", err
	}

	labels := make(map[string]string, len(g.Nodes))
	used := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if !encodableLabel(n.Label) {
			return "", fmt.Errorf("%w: %q", ErrUnencodableLabel, n.Label)
		}
		if used[n.Label] {
			return "", fmt.Errorf("%w: %q is not unique", ErrUnencodableLabel, n.Label)
		}
		used[n.Label] = true
		labels[n.ID] = n.Label
	}

	targets := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		targets[e.SourceID] = append(targets[e.SourceID], labels[e.TargetID])
	}

	var b strings.Builder
	for _, n := range g.Nodes {
		b.WriteString(n.Label)
		b.WriteString(": ")
		b.WriteString(strings.Join(targets[n.ID], ", "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func encodableLabel(label string) bool {
	return label != "" &&
		label == strings.TrimSpace(label) &&
		!strings.ContainsAny(label, ":,\r\n")
}

// labelProblem explains why a trimmed, non-empty label cannot round-trip
// through the text form. It returns "" for a usable label.
func labelProblem(label string) string {
	switch {
	case strings.Contains(label, ","):
		return fmt.Sprintf("label %q cannot contain ','", label)
	case !encodableLabel(label):
		return fmt.Sprintf("label %q cannot be written as adjacency text", label)
	}
	return ""
}

// ParseAdjacencyList reads adjacency text into seeding data. Every distinct
// label, whether a line head or a target, becomes one node carrying
// Ref = Label; every "head: target" pair becomes an edge wired by
// SourceRef/TargetRef. Nodes come in line order, followed by labels that only
// ever appear as targets, so parsing serialized text reproduces its node
// order. Pass the result through Resolve before validating it.
//
// Blank lines are ignored. Lines without ':', with an empty label, with a
// label SerializeAdjacencyList could not write back, with an empty entry in a
// non-empty target list, or re-defining a label that already headed an
// earlier line are reported as MalformedLine and skipped; parsing
// continues so every bad line is reported. Cycles, duplicates, and self-loops
// are not rejected here; they are left for Validate.
func ParseAdjacencyList(text string) (Graph, []ValidationError) {
	var (
		g       = Graph{Nodes: []Node{}, Edges: []Edge{}}
		diags   []ValidationError
		heads   = make(map[string]int) // label → line it was defined on
		order   []string               // heads in line order
		targets []string               // target labels in first-appearance order
	)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		head, rest, ok := strings.Cut(line, ":")
		if !ok {
			diags = append(diags, MalformedLine(lineNo, "missing ':'"))
			continue
		}
		head = strings.TrimSpace(head)
		if head == "" {
			diags = append(diags, MalformedLine(lineNo, "empty label"))
			continue
		}
		if reason := labelProblem(head); reason != "" {
			diags = append(diags, MalformedLine(lineNo, reason))
			continue
		}
		if first, dup := heads[head]; dup {
			diags = append(diags, MalformedLine(lineNo, fmt.Sprintf("%q is already defined on line %d", head, first)))
			continue
		}

		ts, reason := splitTargets(rest)
		if reason != "" {
			diags = append(diags, MalformedLine(lineNo, reason))
			continue
		}

		heads[head] = lineNo
		order = append(order, head)
		for _, t := range ts {
			targets = append(targets, t)
			g.Edges = append(g.Edges, Edge{SourceRef: head, TargetRef: t})
		}
	}

	known := make(map[string]bool, len(order))
	for _, label := range append(order, targets...) {
		if !known[label] {
			known[label] = true
			g.Nodes = append(g.Nodes, Node{Ref: label, Label: label})
		}
	}

	return g, diags
}

// splitTargets splits the right-hand side of an adjacency line.
// A non-empty reason means the list is malformed.
func splitTargets(rest string) ([]string, string) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, ""
	}
	var targets []string
	for _, t := range strings.Split(rest, ",") {
		t = strings.TrimSpace(t)
		switch {
		case t == "":
			return nil, "empty target"
		case strings.Contains(t, ":"):
			return nil, fmt.Sprintf("unexpected ':' in target %q", t)
		case !encodableLabel(t):
			return nil, labelProblem(t)
		}
		targets = append(targets, t)
	}
	return targets, ""
}

// CheckAdjacencyList parses text, validates it, and resolves it with newID.
// Malformed-line diagnostics come first, followed by the validation errors of
// whatever parsed cleanly, so one pass shows every problem. Validation errors
// name nodes by label, since that is how the text addresses them.
func CheckAdjacencyList(text string, newID func() string) (Graph, ValidationResult) {
	g, diags := ParseAdjacencyList(text)

	byLabel := Graph{Nodes: make([]Node, len(g.Nodes)), Edges: make([]Edge, len(g.Edges))}
	for i, n := range g.Nodes {
		byLabel.Nodes[i] = Node{ID: n.Label, Label: n.Label}
	}
	for i, e := range g.Edges {
		byLabel.Edges[i] = Edge{ID: fmt.Sprintf("edge-%d", i+1), SourceID: e.SourceRef, TargetID: e.TargetRef}
	}
	res := Validate(byLabel)

	Resolve(&g, newID)
	return g, newResult(append(diags, res.Errors...))
}
