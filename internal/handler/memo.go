package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/middleware"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/service"
)

// MemoHandler serves memo commands and reads.
type MemoHandler struct {
	Memos   *service.MemoService
	Queries *service.QueryService
}

func NewMemoHandler(memos *service.MemoService, queries *service.QueryService) *MemoHandler {
	return &MemoHandler{Memos: memos, Queries: queries}
}

type createMemoReq struct {
	Content    string          `json:"content"`
	Visibility string          `json:"visibility"`
	Tags       []string        `json:"tags"`
	Pinned     bool            `json:"pinned"`
	Payload    json.RawMessage `json:"payload"`
}

// visibilityArg parses an optional visibility from a body field.
func visibilityArg(raw string) (*model.Visibility, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := model.ParseVisibility(raw)
	if err != nil {
		return nil, badRequest("visibility must be PUBLIC, PROTECTED or PRIVATE")
	}
	return &v, nil
}

func (h *MemoHandler) Create(c echo.Context) error {
	var req createMemoReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	vis, err := visibilityArg(req.Visibility)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Memos.Create(ctx, middleware.PrincipalFrom(c), service.CreateMemoInput{
		Content:    req.Content,
		Visibility: vis,
		Tags:       req.Tags,
		Pinned:     req.Pinned,
		Payload:    req.Payload,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MemoHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Memos.Get(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MemoHandler) GetByUID(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Memos.GetByUID(ctx, middleware.PrincipalFrom(c), c.Param("uid"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

type updateMemoReq struct {
	Content    *string   `json:"content"`
	Visibility *string   `json:"visibility"`
	Tags       *[]string `json:"tags"`
	Pinned     *bool     `json:"pinned"`
}

// Update applies a partial update; fields left out of the body keep
// their stored values.
func (h *MemoHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateMemoReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	patch := model.MemoPatch{Content: req.Content, Tags: req.Tags, Pinned: req.Pinned}
	if req.Visibility != nil {
		v, err := model.ParseVisibility(*req.Visibility)
		if err != nil {
			return writeError(c, badRequest("visibility must be PUBLIC, PROTECTED or PRIVATE"))
		}
		patch.Visibility = &v
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Memos.Update(ctx, middleware.PrincipalFrom(c), id, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MemoHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Memos.Delete(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// memoQuery reads the query parameters shared by list, search and
// filter.  An unknown visibility is rejected rather than ignored.
func memoQuery(c echo.Context) (service.MemoQuery, error) {
	var q service.MemoQuery
	var err error
	if q.CreatorID, err = queryUint(c, "creator_id"); err != nil {
		return q, err
	}
	if q.Visibility, err = queryVisibility(c); err != nil {
		return q, err
	}
	if q.Pinned, err = queryBool(c, "pinned"); err != nil {
		return q, err
	}
	if q.Skip, q.Limit, err = paging(c); err != nil {
		return q, err
	}
	q.Tag = strings.TrimSpace(c.QueryParam("tag"))
	q.Content = c.QueryParam("content_contains")
	q.DateFrom = c.QueryParam("date_from")
	q.DateTo = c.QueryParam("date_to")
	return q, nil
}

// List returns memos newest first: PUBLIC only for anonymous callers,
// the caller's own memos by default otherwise.
func (h *MemoHandler) List(c echo.Context) error {
	q, err := memoQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	memos, err := h.Queries.List(ctx, middleware.PrincipalFrom(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(memos))
}

func (h *MemoHandler) Search(c echo.Context) error {
	q, err := memoQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	memos, err := h.Queries.Search(ctx, middleware.PrincipalFrom(c), c.QueryParam("query"), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(memos))
}

// Filter accepts every predicate.  Unparsable date bounds are dropped.
func (h *MemoHandler) Filter(c echo.Context) error {
	q, err := memoQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	memos, err := h.Queries.Filter(ctx, middleware.PrincipalFrom(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(memos))
}

func (h *MemoHandler) Tags(c echo.Context) error {
	creator, err := queryUint(c, "creator_id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tags, err := h.Queries.Tags(ctx, middleware.PrincipalFrom(c), creator)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tags": list(tags)})
}

func (h *MemoHandler) Stats(c echo.Context) error {
	creator, err := queryUint(c, "creator_id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Queries.Stats(ctx, middleware.PrincipalFrom(c), creator)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
