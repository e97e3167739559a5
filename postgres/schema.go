package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS graphs (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS graph_nodes (
    graph_id   TEXT NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
    id         TEXT NOT NULL,
    position   INTEGER NOT NULL,
    label      TEXT NOT NULL DEFAULT '',
    x          DOUBLE PRECISION NOT NULL DEFAULT 0,
    y          DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS graph_edges (
    graph_id       TEXT NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
    id             TEXT NOT NULL,
    position       INTEGER NOT NULL,
    source_node_id TEXT NOT NULL,
    target_node_id TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (graph_id, id),
    FOREIGN KEY (graph_id, source_node_id) REFERENCES graph_nodes(graph_id, id) ON DELETE CASCADE,
    FOREIGN KEY (graph_id, target_node_id) REFERENCES graph_nodes(graph_id, id) ON DELETE CASCADE,
    CHECK (source_node_id <> target_node_id),
    UNIQUE (graph_id, source_node_id, target_node_id)
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(graph_id, target_node_id);
`

// CreateSchema creates the graphs, graph_nodes, and graph_edges tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the graph_edges, graph_nodes, and graphs tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS graph_edges, graph_nodes, graphs CASCADE;`)
	return err
}
