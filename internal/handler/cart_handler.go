package handler

import (
	"net/http"

	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /carts のHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type CartStatusRequest struct {
	Status string `json:"status"`
}

type CartTotalResponse struct {
	CartID     int64  `json:"cart_id"`
	TotalPrice string `json:"total_price"`
}

// authは必須、optionalは匿名カート用、adminは管理者のみ
func (h *CartHandler) RegisterRoutes(g *echo.Group, auth, optional, admin []echo.MiddlewareFunc) {
	g.GET("", h.list, admin...)
	g.GET("/mine", h.listMine, auth...)
	g.GET("/current", h.current, auth...)
	g.POST("", h.create, optional...)
	g.GET("/:id", h.detail, optional...)
	g.PUT("/:id", h.updateStatus, optional...)
	g.POST("/:id/recompute", h.recompute, admin...)
	g.DELETE("/soft-delete/:id", h.softDelete, optional...)
	g.DELETE("/:id", h.delete, admin...)
}

func (h *CartHandler) listInput(c echo.Context) (usecase.CartListInput, error) {
	pageIndex, pageSize, err := paging(c)
	if err != nil {
		return usecase.CartListInput{}, err
	}
	id, err := int64Query(c, "id")
	if err != nil {
		return usecase.CartListInput{}, err
	}
	userID, err := int64Query(c, "userId")
	if err != nil {
		return usecase.CartListInput{}, err
	}
	return usecase.CartListInput{
		PageIndex: pageIndex,
		PageSize:  pageSize,
		ID:        id,
		UserID:    userID,
		Status:    c.QueryParam("status"),
	}, nil
}

func (h *CartHandler) list(c echo.Context) error {
	in, err := h.listInput(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) listMine(c echo.Context) error {
	in, err := h.listInput(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListMine(c.Request().Context(), getActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ログインユーザーの未注文カートを返す（なければ作る）
func (h *CartHandler) current(c echo.Context) error {
	actor := getActor(c)
	out, err := h.uc.ResolveOrCreateLatestOpenCart(c.Request().Context(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) create(c echo.Context) error {
	out, err := h.uc.CreateCart(c.Request().Context(), getActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CartHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.Get(c.Request().Context(), getActor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req CartStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), getActor(c), id, usecase.UpdateCartInput{Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) recompute(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	total, err := h.uc.RecomputeTotal(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CartTotalResponse{CartID: id, TotalPrice: total.StringFixed(2)})
}

func (h *CartHandler) softDelete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.SoftDelete(c.Request().Context(), getActor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *CartHandler) delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
