package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/dagedit"
)

var nodeColumns = []string{"id", "graph_id", "position", "label", "x", "y"}

// insertNodes bulk-loads nodes, recording their order in position.
func insertNodes(ctx context.Context, q querier, graphID string, nodes []dagedit.Node) error {
	rows := make([][]any, len(nodes))
	for i, n := range nodes {
		rows[i] = []any{n.ID, graphID, i, n.Label, n.X, n.Y}
	}
	if _, err := q.CopyFrom(ctx, pgx.Identifier{"graph_nodes"}, nodeColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("dag: insert nodes: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a graphID, in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, graphID string) ([]dagedit.Node, error) {
	return listNodes(ctx, s.db, graphID)
}

func listNodes(ctx context.Context, q querier, graphID string) ([]dagedit.Node, error) {
	rows, err := q.Query(ctx,
		`SELECT id, label, x, y FROM graph_nodes WHERE graph_id = $1 ORDER BY position`, graphID)
	if err != nil {
		return nil, fmt.Errorf("dag: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []dagedit.Node{}
	for rows.Next() {
		var n dagedit.Node
		if err := rows.Scan(&n.ID, &n.Label, &n.X, &n.Y); err != nil {
			return nil, fmt.Errorf("dag: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dag: rows nodes: %w", err)
	}

	return nodes, nil
}
