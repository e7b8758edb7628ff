package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PageHandler renders the admin client's HTML shells. Data is loaded by
// static/app.js from the JSON API.
type PageHandler struct {
	pages  map[string]*template.Template
	title  string
	logger *slog.Logger
}

// Page names, each a file under templates/ rendered inside base.html.
const (
	pageIndex       = "index.html"
	pageParticipant = "participant.html"
	pageStats       = "stats.html"
)

// NewPageHandler parses the templates from fsys (the embedded web assets in
// production, an fstest.MapFS in tests).
func NewPageHandler(fsys fs.FS, title string, logger *slog.Logger) (*PageHandler, error) {
	h := &PageHandler{pages: map[string]*template.Template{}, title: title, logger: logger}
	for _, page := range []string{pageIndex, pageParticipant, pageStats} {
		tmpl, err := template.ParseFS(fsys, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", page, err)
		}
		h.pages[page] = tmpl
	}
	return h, nil
}

type pageData struct {
	Title         string
	Page          string
	ParticipantID string
}

// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageIndex, pageData{Title: h.title, Page: "main"})
}

// HandleParticipant is the door page the QR code points to.
//
// HTTP: GET /participant/{id}
func (h *PageHandler) HandleParticipant(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageParticipant, pageData{
		Title:         h.title,
		Page:          "participant",
		ParticipantID: chi.URLParam(r, "id"),
	})
}

// HTTP: GET /stats
func (h *PageHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageStats, pageData{Title: h.title + " · statistics", Page: "stats"})
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data pageData) {
	// Render into a buffer so a template error does not leave half a page.
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
