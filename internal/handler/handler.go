package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageIndex = 1
	defaultPageSize  = 10
)

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Code: he.Code, Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: usecase.CodeInternal, Error: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Code: usecase.CodeBadRequest, Error: msg})
}

// AuthJWT/AuthOptionalが入れた値から呼び出し元を作る。なければ匿名
func getActor(c echo.Context) usecase.Actor {
	id, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return usecase.Actor{UserID: id, Role: role}
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pageIndex/pageSizeの範囲チェックはusecase側
func paging(c echo.Context) (int, int, error) {
	pageIndex, err := intQuery(c, "pageIndex", defaultPageIndex)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intQuery(c, "pageSize", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return pageIndex, pageSize, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func int64Query(c echo.Context, name string) (*int64, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &n, nil
}

// 2006-01-02 かRFC3339
func timeQuery(c echo.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	if tm, err := time.Parse("2006-01-02", v); err == nil {
		return &tm, nil
	}
	tm, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &tm, nil
}
