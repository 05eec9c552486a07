package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
)

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError maps err onto the shared status contract.  Unclassified
// errors are logged and answered with a generic 500.
func writeError(c echo.Context, err error) error {
	status := apperr.Status(err)
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "route", c.Path(), "err", err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err, defaultMessage(err))})
}

func defaultMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "authentication required"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return "not found"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	}
	return "invalid request"
}

func badRequest(msg string) error { return apperr.New(apperr.ErrInvalid, msg) }

// pathID parses the :name path parameter as a positive id.  A malformed id
// cannot name anything, so it is reported as not found.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.ErrNotFound, "not found")
	}
	return id, nil
}

func queryUint(c echo.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, badRequest(name + " must be a positive integer")
	}
	return &n, nil
}

func queryInt(c echo.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, badRequest(name + " must be an integer")
	}
	return &n, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest(name + " must be true or false")
	}
	return &b, nil
}

func queryVisibility(c echo.Context) (*model.Visibility, error) {
	raw := strings.TrimSpace(c.QueryParam("visibility"))
	if raw == "" {
		return nil, nil
	}
	v, err := model.ParseVisibility(raw)
	if err != nil {
		return nil, badRequest("visibility must be PUBLIC, PROTECTED or PRIVATE")
	}
	return &v, nil
}

// paging reads skip and limit.  Range clamping happens downstream.
func paging(c echo.Context) (skip int, limit *int, err error) {
	s, err := queryInt(c, "skip")
	if err != nil {
		return 0, nil, err
	}
	if s != nil {
		skip = *s
	}
	limit, err = queryInt(c, "limit")
	return skip, limit, err
}

// list keeps empty results serialized as [] rather than null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
