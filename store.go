package dagedit

import "context"

// Store defines the contract for persisting and retrieving committed graphs.
// The engine never calls a Store itself; hosts save after each commit.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graphs
	SaveGraph(ctx context.Context, g *Graph) error
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error
}
