// Package api implements the REST API for sequence, descriptor and centre
// lookups.
package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lemonberrylabs/bufr-resolve/pkg/resolver"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
)

// Server is the HTTP API server.
type Server struct {
	app *fiber.App
	svc *resolver.Service
}

// Options tune the HTTP server.
type Options struct {
	// AccessLog enables per-request logging.
	AccessLog bool
}

// New creates a new API server.
func New(svc *resolver.Service, opts Options) *Server {
	srv := &Server{svc: svc}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	if opts.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/v1/sequences", srv.listSequences)
	app.Get("/v1/sequences/:id", srv.getSequence)
	app.Get("/v1/descriptors/:id", srv.getDescriptor)
	app.Get("/v1/centres/:id", srv.getCentre)
	app.Get("/v1/config", srv.getConfig)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Handlers ---

func (s *Server) listSequences(c *fiber.Ctx) error {
	ids, err := s.svc.SequenceIDs()
	if err != nil {
		return lookupError(c, err)
	}
	if prefix := c.Query("prefix"); prefix != "" {
		var filtered []string
		for _, id := range ids {
			if strings.HasPrefix(id, prefix) {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"sequences": ids})
}

func (s *Server) getSequence(c *fiber.Ctx) error {
	id := c.Params("id")
	tree, err := s.svc.Sequence(id)
	if err != nil {
		return lookupError(c, err)
	}

	result := fiber.Map{
		"id":         id,
		"found":      tree.Found,
		"terminated": tree.Terminated,
		"tree":       tree,
		"stats":      tree.Stats(),
	}
	if c.QueryBool("flat") {
		result["flat"] = tree.Flatten()
	}
	return c.JSON(result)
}

func (s *Server) getDescriptor(c *fiber.Ctx) error {
	id := c.Params("id")
	e, ok, err := s.svc.Element(id)
	if err != nil {
		return lookupError(c, err)
	}
	if !ok {
		return errorJSON(c, 404, "NOT_FOUND", fmt.Sprintf("Descriptor: %s not found.", id))
	}
	return c.JSON(e)
}

func (s *Server) getCentre(c *fiber.Ctx) error {
	id := c.Params("id")
	centre, ok, err := s.svc.Centre(id)
	if err != nil {
		return lookupError(c, err)
	}
	if !ok {
		return errorJSON(c, 404, "NOT_FOUND", fmt.Sprintf("Centre ID: %s not found.", id))
	}
	return c.JSON(centre)
}

func (s *Server) getConfig(c *fiber.Ctx) error {
	return c.JSON(s.svc.Config().ToMap())
}

// --- Helpers ---

func lookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, types.ErrUnavailable) {
		return errorJSON(c, 503, "UNAVAILABLE", err.Error())
	}
	return errorJSON(c, 500, "INTERNAL", err.Error())
}

func errorJSON(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}
