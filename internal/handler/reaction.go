package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/middleware"
	"github.com/iliyamo/memos/internal/service"
)

// ReactionHandler serves memo reactions and memo relations.  Both hang
// off a memo and follow its visibility.
type ReactionHandler struct {
	Reactions *service.ReactionService
	Relations *service.RelationService
}

func NewReactionHandler(reactions *service.ReactionService, relations *service.RelationService) *ReactionHandler {
	return &ReactionHandler{Reactions: reactions, Relations: relations}
}

type addReactionReq struct {
	Reaction string `json:"reaction"`
}

func (h *ReactionHandler) Add(c echo.Context) error {
	memoID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req addReactionReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Reactions.Add(ctx, middleware.PrincipalFrom(c), memoID, req.Reaction)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReactionHandler) List(c echo.Context) error {
	memoID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rs, err := h.Reactions.List(ctx, middleware.PrincipalFrom(c), memoID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(rs))
}

// Remove deletes one of the caller's reactions.
func (h *ReactionHandler) Remove(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Reactions.Remove(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type linkReq struct {
	RelatedMemoID uint64 `json:"related_memo_id"`
	Type          string `json:"type"`
}

func (h *ReactionHandler) Link(c echo.Context) error {
	memoID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req linkReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Relations.Link(ctx, middleware.PrincipalFrom(c), memoID, req.RelatedMemoID, req.Type)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rel)
}

// ListRelations returns a memo's edges, omitting those whose target the
// caller cannot view.
func (h *ReactionHandler) ListRelations(c echo.Context) error {
	memoID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rels, err := h.Relations.List(ctx, middleware.PrincipalFrom(c), memoID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(rels))
}
