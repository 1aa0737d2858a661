package handler

import (
	"net/http"

	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cart-items のHTTP
type CartItemHandler struct {
	uc *usecase.CartItemUsecase
}

func NewCartItemHandler(uc *usecase.CartItemUsecase) *CartItemHandler {
	return &CartItemHandler{uc: uc}
}

type AddCartItemRequest struct {
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// 省略した項目は変更しない
type UpdateCartItemRequest struct {
	CartID    *int64 `json:"cart_id"`
	ProductID *int64 `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

func (h *CartItemHandler) RegisterRoutes(g *echo.Group, optional, admin []echo.MiddlewareFunc) {
	g.GET("", h.list, admin...)
	g.GET("/:id", h.detail, optional...)
	g.POST("", h.add, optional...)
	g.PUT("/:id", h.update, optional...)
	g.DELETE("/:id", h.delete, optional...)
}

func (h *CartItemHandler) list(c echo.Context) error {
	pageIndex, pageSize, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	in := usecase.CartItemListInput{PageIndex: pageIndex, PageSize: pageSize}
	if in.ID, err = int64Query(c, "id"); err != nil {
		return writeError(c, err)
	}
	if in.CartID, err = int64Query(c, "cartId"); err != nil {
		return writeError(c, err)
	}
	if in.ProductID, err = int64Query(c, "productId"); err != nil {
		return writeError(c, err)
	}
	if in.Quantity, err = int64Query(c, "quantity"); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartItemHandler) detail(c echo.Context) error {
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

func (h *CartItemHandler) add(c echo.Context) error {
	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Add(c.Request().Context(), getActor(c), usecase.AddCartItemInput{
		CartID:    req.CartID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CartItemHandler) update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Update(c.Request().Context(), getActor(c), id, usecase.UpdateCartItemInput{
		CartID:    req.CartID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartItemHandler) delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.Delete(c.Request().Context(), getActor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
