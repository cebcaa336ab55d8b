package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/model"
)

const maxNoteTitle = 100

// NoteStore persists notes per author.
type NoteStore interface {
	Create(ctx context.Context, n *model.Note) error
	ListByAuthor(ctx context.Context, authorID uint64) ([]model.Note, error)
	DeleteForAuthor(ctx context.Context, id, authorID uint64) error
}

// NoteHandler serves the caller's own notes.
type NoteHandler struct {
	Notes NoteStore
}

func NewNoteHandler(n NoteStore) *NoteHandler {
	return &NoteHandler{Notes: n}
}

type noteReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r noteReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, maxNoteTitle)),
	)
}

type noteResp struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    uint64    `json:"author"`
}

func toNoteResp(n model.Note) noteResp {
	return noteResp{ID: n.ID, Title: n.Title, Content: n.Content, CreatedAt: n.CreatedAt, Author: n.AuthorID}
}

// List handles GET /api/notes.
func (h *NoteHandler) List(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ns, err := h.Notes.ListByAuthor(ctx, caller.UserID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]noteResp, 0, len(ns))
	for _, n := range ns {
		out = append(out, toNoteResp(n))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /api/notes.
func (h *NoteHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := req.Validate(); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n := model.Note{AuthorID: caller.UserID, Title: req.Title, Content: req.Content}
	if err := h.Notes.Create(ctx, &n); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toNoteResp(n))
}

// Delete handles DELETE /api/notes/:id and /api/notes/delete/:id.  Notes
// of other authors are reported as missing.
func (h *NoteHandler) Delete(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Notes.DeleteForAuthor(ctx, id, caller.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
