package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/dagedit"
)

var edgeColumns = []string{"id", "graph_id", "position", "source_node_id", "target_node_id"}

// insertEdges bulk-loads edges, recording their order in position.
// Nodes must already be present.
func insertEdges(ctx context.Context, q querier, graphID string, edges []dagedit.Edge) error {
	rows := make([][]any, len(edges))
	for i, e := range edges {
		rows[i] = []any{e.ID, graphID, i, e.SourceID, e.TargetID}
	}
	if _, err := q.CopyFrom(ctx, pgx.Identifier{"graph_edges"}, edgeColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("dag: insert edges: %w", err)
	}
	return nil
}

// ListEdges returns all edges for a graphID, in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, graphID string) ([]dagedit.Edge, error) {
	return listEdges(ctx, s.db, graphID)
}

func listEdges(ctx context.Context, q querier, graphID string) ([]dagedit.Edge, error) {
	rows, err := q.Query(ctx,
		`SELECT id, source_node_id, target_node_id FROM graph_edges WHERE graph_id = $1 ORDER BY position`, graphID)
	if err != nil {
		return nil, fmt.Errorf("dag: list edges: %w", err)
	}
	defer rows.Close()

	edges := []dagedit.Edge{}
	for rows.Next() {
		var e dagedit.Edge
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID); err != nil {
			return nil, fmt.Errorf("dag: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dag: rows edges: %w", err)
	}

	return edges, nil
}
