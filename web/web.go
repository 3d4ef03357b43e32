// Package web provides the embedded web UI for browsing BUFR sequences.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/bufr-resolve/pkg/config"
	"github.com/lemonberrylabs/bufr-resolve/pkg/descriptor"
	"github.com/lemonberrylabs/bufr-resolve/pkg/expand"
	"github.com/lemonberrylabs/bufr-resolve/pkg/resolver"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	svc     *resolver.Service
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Config    *config.Config
	Data      interface{}
}

// New creates a new web UI handler.
func New(svc *resolver.Service) *Handler {
	h := &Handler{svc: svc}
	h.funcMap = template.FuncMap{
		"classOf":     classOf,
		"replication": descriptor.DescribeReplication,
		"fxy":         fxy,
		"element":     h.element,
		"marker":      func() string { return expand.CircularMarker },
	}
	return h
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Parse templates fresh each time for the page-specific template
	// This avoids the Go template issue where define blocks conflict across pages
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Config:    h.svc.Config(),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/sequences/:id", h.sequenceDetail)
	app.Get("/ui/descriptors/:id", h.descriptorDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Query     string
	Sequences []string
	Total     int
}

type sequenceContent struct {
	Tree  *expand.Tree
	Stats expand.Stats
}

type descriptorContent struct {
	Element *types.Element
	FXY     string
}

type messageContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	ids, err := h.svc.SequenceIDs()
	if err != nil {
		return h.failure(c, err)
	}

	q := strings.TrimSpace(c.Query("q"))
	shown := ids
	if q != "" {
		shown = nil
		for _, id := range ids {
			if strings.HasPrefix(id, q) {
				shown = append(shown, id)
			}
		}
	}

	return h.render(c, "dashboard.html", "dashboard", dashboardContent{
		Query:     q,
		Sequences: shown,
		Total:     len(ids),
	})
}

func (h *Handler) sequenceDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	tree, err := h.svc.Sequence(id)
	if err != nil {
		return h.failure(c, err)
	}
	if !tree.Found {
		c.Status(404)
		return h.render(c, "not_found.html", "", messageContent{
			Message: fmt.Sprintf("Sequence %s not found.", id),
		})
	}

	return h.render(c, "sequence.html", "sequences", sequenceContent{
		Tree:  tree,
		Stats: tree.Stats(),
	})
}

func (h *Handler) descriptorDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	e, ok, err := h.svc.Element(id)
	if err != nil {
		return h.failure(c, err)
	}
	if !ok {
		c.Status(404)
		return h.render(c, "not_found.html", "", messageContent{
			Message: fmt.Sprintf("Descriptor: %s not found.", id),
		})
	}

	return h.render(c, "descriptor.html", "descriptors", descriptorContent{
		Element: e,
		FXY:     fxy(e.Code),
	})
}

func (h *Handler) failure(c *fiber.Ctx, err error) error {
	if errors.Is(err, types.ErrUnavailable) {
		c.Status(503)
	} else {
		c.Status(500)
	}
	return h.render(c, "not_found.html", "", messageContent{Message: err.Error()})
}

// --- Template Helpers ---

func classOf(tok string) string {
	return descriptor.Classify(tok).String()
}

func fxy(tok string) string {
	d, err := descriptor.Parse(tok)
	if err != nil {
		return ""
	}
	return d.String()
}

// element returns nil for codes missing from element.table so templates can
// use {{with element .Token}}.
func (h *Handler) element(code string) (*types.Element, error) {
	e, ok, err := h.svc.Element(code)
	if err != nil || !ok {
		return nil, err
	}
	return e, nil
}
