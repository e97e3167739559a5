package dagedit

// Validate checks g and returns every problem found, in a fixed order:
//
//  1. node or edge ids used more than once (DuplicateID)
//  2. edges naming a missing node (InvalidNodeReference)
//  3. self-loops (SelfLoop)
//  4. repeated (source, target) pairs, once per repeat (DuplicateEdge)
//  5. a directed cycle among the edges that passed 2-4 (CycleDetected)
//
// Within each check, errors follow node/edge insertion order.
// Validate is pure; the same graph always yields the same result.
func Validate(g Graph) ValidationResult {
	var errs []ValidationError

	nodes := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if nodes[n.ID] {
			errs = append(errs, DuplicateID(n.ID))
		}
		nodes[n.ID] = true
	}
	edgeIDs := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if edgeIDs[e.ID] {
			errs = append(errs, DuplicateID(e.ID))
		}
		edgeIDs[e.ID] = true
	}

	// Edges that fail a structural check stay out of cycle detection.
	excluded := make([]bool, len(g.Edges))

	for i, e := range g.Edges {
		if !nodes[e.SourceID] || !nodes[e.TargetID] {
			errs = append(errs, InvalidNodeReference(e.ID))
			excluded[i] = true
		}
	}

	for i, e := range g.Edges {
		if e.IsSelfLoop() {
			errs = append(errs, SelfLoop(e.SourceID))
			excluded[i] = true
		}
	}

	pairs := make(map[Arc]bool, len(g.Edges))
	for i, e := range g.Edges {
		a := Arc{From: e.SourceID, To: e.TargetID}
		if pairs[a] {
			errs = append(errs, DuplicateEdge(e.SourceID, e.TargetID))
			excluded[i] = true
			continue
		}
		pairs[a] = true
	}

	arcs := make([]Arc, 0, len(g.Edges))
	for i, e := range g.Edges {
		if !excluded[i] {
			arcs = append(arcs, Arc{From: e.SourceID, To: e.TargetID})
		}
	}
	if path, ok := FindCycle(g.nodeIDs(), arcs); ok {
		errs = append(errs, CycleDetected(path))
	}

	return newResult(errs)
}
