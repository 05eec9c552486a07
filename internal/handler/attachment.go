package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/middleware"
	"github.com/iliyamo/memos/internal/service"
)

// FileOpener reads stored attachment bytes back.  Satisfied by
// storage.LocalStore.
type FileOpener interface {
	Open(ref string) (io.ReadSeekCloser, error)
}

type AttachmentHandler struct {
	Attachments *service.AttachmentService
	Files       FileOpener
}

func NewAttachmentHandler(attachments *service.AttachmentService, files FileOpener) *AttachmentHandler {
	return &AttachmentHandler{Attachments: attachments, Files: files}
}

// Upload stores the multipart "file" field, optionally bound to the
// memo named by the "memo_id" field.
func (h *AttachmentHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, badRequest("file is required"))
	}
	var memoID *uint64
	if raw := strings.TrimSpace(c.FormValue("memo_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return writeError(c, badRequest("memo_id must be a positive integer"))
		}
		memoID = &id
	}
	src, err := fh.Open()
	if err != nil {
		return writeError(c, badRequest("unreadable upload"))
	}
	defer src.Close()

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Attachments.Create(ctx, middleware.PrincipalFrom(c), service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Body:        src,
		MemoID:      memoID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AttachmentHandler) List(c echo.Context) error {
	memoID, err := queryUint(c, "memo_id")
	if err != nil {
		return writeError(c, err)
	}
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Attachments.List(ctx, middleware.PrincipalFrom(c), memoID, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list(items))
}

// Get returns attachment metadata to its creator.
func (h *AttachmentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Attachments.Get(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete removes an attachment and its stored file.
func (h *AttachmentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Attachments.Delete(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Download streams the attachment bytes to its creator.
func (h *AttachmentHandler) Download(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Attachments.Get(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	f, err := h.Files.Open(a.Reference)
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	if a.FileType != "" {
		c.Response().Header().Set(echo.HeaderContentType, a.FileType)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", a.Filename))
	modified := a.CreatedAt
	if modified.IsZero() {
		modified = time.Now()
	}
	http.ServeContent(c.Response(), c.Request(), a.Filename, modified, f)
	return nil
}
