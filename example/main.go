package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/dagedit"
	"github.com/meikuraledutech/dagedit/postgres"
)

func main() {
	ctx := context.Background()

	// ── Seed using refs (tree insert) ─────────────────────────────────
	ed, err := dagedit.NewEditor(dagedit.Graph{
		ID: "onboarding-form",
		Nodes: []dagedit.Node{
			{Ref: "q1", Label: "Role", X: 0, Y: 0},
			{Ref: "q2", Label: "Language", X: -1, Y: 1},
			{Ref: "q3", Label: "DesignTool", X: 1, Y: 1},
		},
		Edges: []dagedit.Edge{
			{SourceRef: "q1", TargetRef: "q2"},
			{SourceRef: "q1", TargetRef: "q3"},
		},
	}, dagedit.WithHistoryLimit(50))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Println("graph seeded (bulk with refs)")
	printJSON(ed.Graph())

	// ── Granular: add a node and an edge ──────────────────────────────
	q4, err := ed.AddNode("Experience", -1, 2)
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	language := ed.Graph().Nodes[1]
	if _, err := ed.AddEdge(language.ID, q4.ID); err != nil {
		log.Fatalf("add edge: %v", err)
	}

	// ── Rejected: closing a cycle ─────────────────────────────────────
	role := ed.Graph().Nodes[0]
	_, err = ed.AddEdge(q4.ID, role.ID)
	var rej *dagedit.RejectedError
	if errors.As(err, &rej) {
		fmt.Println("\nedge rejected:")
		for _, ve := range rej.Result.Errors {
			fmt.Println(" -", ve.Message)
		}
	}

	// ── Adjacency text ────────────────────────────────────────────────
	text, err := ed.Export()
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("\nadjacency:\n%s", text)

	// ── Undo / redo ───────────────────────────────────────────────────
	if _, err := ed.Undo(); err != nil {
		log.Fatalf("undo: %v", err)
	}
	fmt.Printf("\nafter undo: %d edges\n", len(ed.Graph().Edges))
	if _, err := ed.Redo(); err != nil {
		log.Fatalf("redo: %v", err)
	}
	fmt.Printf("after redo: %d edges\n", len(ed.Graph().Edges))

	// ── Persist (optional) ────────────────────────────────────────────
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fmt.Println("\nDATABASE_URL is not set, skipping persistence")
		return
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store dagedit.Store = postgres.New(pool)
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	g := ed.Graph()
	if err := store.SaveGraph(ctx, &g); err != nil {
		log.Fatalf("save: %v", err)
	}
	loaded, err := store.GetGraph(ctx, g.ID)
	if err != nil {
		log.Fatalf("get graph: %v", err)
	}
	fmt.Println("\ngraph retrieved:")
	printJSON(loaded)

	if err := store.DeleteGraph(ctx, g.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\ngraph deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
