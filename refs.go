package dagedit

import "github.com/google/uuid"

// NewID returns a fresh opaque identifier.
func NewID() string { return uuid.NewString() }

// Resolve prepares a seeding payload for validation, in place.
// Nodes/edges without IDs get ids from newID (NewID when nil).
// Edge refs (SourceRef/TargetRef) are resolved to real node IDs; an unknown
// ref leaves the endpoint empty, which Validate reports as an
// InvalidNodeReference. All ref fields are cleared afterwards.
func Resolve(g *Graph, newID func() string) {
	if newID == nil {
		newID = NewID
	}

	// Build ref → id mapping and assign IDs to nodes.
	refMap := make(map[string]string)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			n.ID = newID()
		}
		if n.Ref != "" {
			refMap[n.Ref] = n.ID
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if e.ID == "" {
			e.ID = newID()
		}
		if e.SourceRef != "" {
			e.SourceID = refMap[e.SourceRef]
		}
		if e.TargetRef != "" {
			e.TargetID = refMap[e.TargetRef]
		}
	}

	// Clear ref fields, they are not committed.
	for i := range g.Nodes {
		g.Nodes[i].Ref = ""
	}
	for i := range g.Edges {
		g.Edges[i].SourceRef = ""
		g.Edges[i].TargetRef = ""
	}
}
