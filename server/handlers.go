package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/meikuraledutech/dagedit"
)

var (
	errTooLarge = errors.New("graph exceeds the configured size limits")
	errNoStore  = errors.New("no database configured")
)

type nodeRequest struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type edgeRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

type replaceRequest struct {
	Nodes []dagedit.Node `json:"nodes"`
	Edges []dagedit.Edge `json:"edges"`
}

type historyResponse struct {
	CanUndo   bool `json:"can_undo"`
	CanRedo   bool `json:"can_redo"`
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
}

// api holds what the HTTP handlers need. store may be nil.
type api struct {
	cfg      Config
	store    dagedit.Store
	sessions *sessions
	logger   *log.Logger
	metrics  *metrics
}

// newApp wires the routes. metricsHandler serves GET /metrics.
func newApp(a *api, metricsHandler http.Handler) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "dagedit"})
	app.Use(a.logRequests)

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if a.store == nil {
			return a.fail(c, errNoStore)
		}
		if err := a.store.CreateSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if a.store == nil {
			return a.fail(c, errNoStore)
		}
		if err := a.store.DropSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Graph (bulk) ──────────────────────────────────────────────────
	app.Post("/graphs", func(c fiber.Ctx) error {
		var seed dagedit.Graph
		if err := c.Bind().JSON(&seed); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := a.withinLimits(len(seed.Nodes), len(seed.Edges)); err != nil {
			return a.fail(c, err)
		}
		sess, err := a.sessions.create(c.Context(), seed)
		a.metrics.observe("create", err)
		if err != nil {
			return a.fail(c, err)
		}
		g := sess.editor.Graph()
		a.logger.Info("graph created", "graph", g.ID, "nodes", len(g.Nodes), "edges", len(g.Edges))
		return c.Status(fiber.StatusCreated).JSON(g)
	})

	app.Get("/graphs/:id", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			return c.JSON(ed.Graph())
		})
	})

	app.Delete("/graphs/:id", func(c fiber.Ctx) error {
		if err := a.sessions.delete(c.Context(), c.Params("id")); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Put("/graphs/:id", func(c fiber.Ctx) error {
		var req replaceRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := a.withinLimits(len(req.Nodes), len(req.Edges)); err != nil {
			return a.fail(c, err)
		}
		return a.mutate(c, "replace_all", fiber.StatusOK, func(ed *dagedit.Editor) (any, error) {
			return ed.ReplaceAll(req.Nodes, req.Edges)
		})
	})

	app.Post("/graphs/:id/check", func(c fiber.Ctx) error {
		var candidate dagedit.Graph
		if err := c.Bind().JSON(&candidate); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := a.withinLimits(len(candidate.Nodes), len(candidate.Edges)); err != nil {
			return a.fail(c, err)
		}
		return a.read(c, func(ed *dagedit.Editor) error {
			return c.JSON(ed.Check(candidate))
		})
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/nodes", func(c fiber.Ctx) error {
		var req nodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		return a.mutate(c, "add_node", fiber.StatusCreated, func(ed *dagedit.Editor) (any, error) {
			g := ed.Graph()
			if err := a.withinLimits(len(g.Nodes)+1, len(g.Edges)); err != nil {
				return nil, err
			}
			return ed.AddNode(req.Label, req.X, req.Y)
		})
	})

	app.Get("/graphs/:id/nodes", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			return c.JSON(ed.Graph().Nodes)
		})
	})

	app.Get("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			n, ok := ed.Graph().Node(c.Params("nodeID"))
			if !ok {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "node not found"})
			}
			return c.JSON(n)
		})
	})

	app.Patch("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		var req nodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		nodeID := c.Params("nodeID")
		return a.mutate(c, "update_node", fiber.StatusNoContent, func(ed *dagedit.Editor) (any, error) {
			return nil, ed.UpdateNode(nodeID, req.Label, req.X, req.Y)
		})
	})

	app.Delete("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		nodeID := c.Params("nodeID")
		return a.mutate(c, "remove_node", fiber.StatusNoContent, func(ed *dagedit.Editor) (any, error) {
			return nil, ed.RemoveNode(nodeID)
		})
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/edges", func(c fiber.Ctx) error {
		var req edgeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		return a.mutate(c, "add_edge", fiber.StatusCreated, func(ed *dagedit.Editor) (any, error) {
			g := ed.Graph()
			if err := a.withinLimits(len(g.Nodes), len(g.Edges)+1); err != nil {
				return nil, err
			}
			return ed.AddEdge(req.SourceID, req.TargetID)
		})
	})

	app.Get("/graphs/:id/edges", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			return c.JSON(ed.Graph().Edges)
		})
	})

	app.Get("/graphs/:id/edges/:edgeID", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			e, ok := ed.Graph().Edge(c.Params("edgeID"))
			if !ok {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "edge not found"})
			}
			return c.JSON(e)
		})
	})

	app.Delete("/graphs/:id/edges/:edgeID", func(c fiber.Ctx) error {
		edgeID := c.Params("edgeID")
		return a.mutate(c, "remove_edge", fiber.StatusNoContent, func(ed *dagedit.Editor) (any, error) {
			return nil, ed.RemoveEdge(edgeID)
		})
	})

	// ── Adjacency text ────────────────────────────────────────────────
	app.Get("/graphs/:id/adjacency", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			text, err := ed.Export()
			if err != nil {
				return a.fail(c, err)
			}
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.SendString(text)
		})
	})

	app.Put("/graphs/:id/adjacency", func(c fiber.Ctx) error {
		text := string(c.Body())
		parsed, _ := dagedit.ParseAdjacencyList(text)
		if err := a.withinLimits(len(parsed.Nodes), len(parsed.Edges)); err != nil {
			return a.fail(c, err)
		}
		return a.mutate(c, "import", fiber.StatusOK, func(ed *dagedit.Editor) (any, error) {
			return ed.Import(text)
		})
	})

	app.Post("/check/adjacency", func(c fiber.Ctx) error {
		text := string(c.Body())
		parsed, _ := dagedit.ParseAdjacencyList(text)
		if err := a.withinLimits(len(parsed.Nodes), len(parsed.Edges)); err != nil {
			return a.fail(c, err)
		}
		_, res := dagedit.CheckAdjacencyList(text, nil)
		return c.JSON(res)
	})

	// ── History ───────────────────────────────────────────────────────
	app.Post("/graphs/:id/undo", func(c fiber.Ctx) error {
		return a.mutate(c, "undo", fiber.StatusOK, func(ed *dagedit.Editor) (any, error) {
			return ed.Undo()
		})
	})

	app.Post("/graphs/:id/redo", func(c fiber.Ctx) error {
		return a.mutate(c, "redo", fiber.StatusOK, func(ed *dagedit.Editor) (any, error) {
			return ed.Redo()
		})
	})

	app.Get("/graphs/:id/history", func(c fiber.Ctx) error {
		return a.read(c, func(ed *dagedit.Editor) error {
			undo, redo := ed.HistoryDepth()
			return c.JSON(historyResponse{
				CanUndo:   ed.CanUndo(),
				CanRedo:   ed.CanRedo(),
				UndoDepth: undo,
				RedoDepth: redo,
			})
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))

	return app
}

// read runs fn with the graph's session locked.
func (a *api) read(c fiber.Ctx, fn func(ed *dagedit.Editor) error) error {
	sess, err := a.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.editor)
}

// mutate runs fn with the graph's session locked and saves the graph once fn
// has committed. When the save fails the commit is rolled back, history
// included. A nil result is answered with a bare status.
func (a *api) mutate(c fiber.Ctx, op string, status int, fn func(ed *dagedit.Editor) (any, error)) error {
	ctx := c.Context()
	id := c.Params("id")

	sess, err := a.sessions.get(ctx, id)
	if err != nil {
		return a.fail(c, err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	before := sess.editor.Clone()
	out, err := fn(sess.editor)
	if err != nil {
		a.metrics.observe(op, err)
		a.logger.Debug("mutation refused", "graph", id, "op", op, "err", err)
		return a.fail(c, err)
	}

	// The editor has committed. If the store refuses the new state, the
	// session goes back to what is persisted.
	if err := a.sessions.save(ctx, sess); err != nil {
		sess.editor = before
		a.metrics.observe(op, err)
		return a.fail(c, fmt.Errorf("save graph %s: %w", id, err))
	}
	a.metrics.observe(op, nil)
	a.logger.Info("mutation committed", "graph", id, "op", op)

	if out == nil {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(out)
}

func (a *api) withinLimits(nodes, edges int) error {
	if nodes > a.cfg.MaxNodes || edges > a.cfg.MaxEdges {
		return fmt.Errorf("%w: %d nodes (max %d), %d edges (max %d)",
			errTooLarge, nodes, a.cfg.MaxNodes, edges, a.cfg.MaxEdges)
	}
	return nil
}

// fail maps err to a status code and JSON body.
func (a *api) fail(c fiber.Ctx, err error) error {
	var rej *dagedit.RejectedError
	switch {
	case errors.As(err, &rej):
		status := fiber.StatusUnprocessableEntity
		if errors.Is(err, dagedit.ErrNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": rej.Error(), "errors": rej.Result.Errors})
	case errors.Is(err, errGraphNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "graph not found"})
	case errors.Is(err, errGraphExists),
		errors.Is(err, dagedit.ErrNothingToUndo),
		errors.Is(err, dagedit.ErrNothingToRedo),
		errors.Is(err, dagedit.ErrUnencodableLabel):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errNoStore):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		a.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func (a *api) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	a.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"elapsed", time.Since(start).Round(time.Microsecond),
	)
	return err
}
