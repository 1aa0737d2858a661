package handler

import (
	"net/http"

	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// ステータスと注文日時はサーバー側で決める
type OrderCreateRequest struct {
	CartID         int64  `json:"cart_id"`
	PaymentMethod  string `json:"payment_method"`
	BillingAddress string `json:"billing_address"`
}

type OrderUpdateRequest struct {
	PaymentMethod  *string `json:"payment_method"`
	BillingAddress *string `json:"billing_address"`
	Status         *string `json:"status"`
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group, auth, admin []echo.MiddlewareFunc) {
	g.GET("", h.list, admin...)
	g.GET("/mine", h.listMine, auth...)
	g.POST("", h.create, auth...)
	g.GET("/:id", h.detail, auth...)
	g.PUT("/:id", h.update, auth...)
	g.GET("/:id/audit-logs", h.auditLogs, admin...)
	g.DELETE("/soft-delete/:id", h.softDelete, admin...)
	g.DELETE("/:id", h.delete, admin...)
}

func (h *OrderHandler) listInput(c echo.Context) (usecase.OrderListInput, error) {
	pageIndex, pageSize, err := paging(c)
	if err != nil {
		return usecase.OrderListInput{}, err
	}
	in := usecase.OrderListInput{
		PageIndex:      pageIndex,
		PageSize:       pageSize,
		PaymentMethod:  c.QueryParam("paymentMethod"),
		BillingAddress: c.QueryParam("billingAddress"),
		Status:         c.QueryParam("status"),
	}
	if in.ID, err = int64Query(c, "id"); err != nil {
		return in, err
	}
	if in.CartID, err = int64Query(c, "cartId"); err != nil {
		return in, err
	}
	if in.UserID, err = int64Query(c, "userId"); err != nil {
		return in, err
	}
	if in.OrderDate, err = timeQuery(c, "orderDate"); err != nil {
		return in, err
	}
	if in.From, err = timeQuery(c, "from"); err != nil {
		return in, err
	}
	if in.To, err = timeQuery(c, "to"); err != nil {
		return in, err
	}
	return in, nil
}

func (h *OrderHandler) list(c echo.Context) error {
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

func (h *OrderHandler) listMine(c echo.Context) error {
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

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	id, err := h.uc.CreateOrder(c.Request().Context(), getActor(c), usecase.CreateOrderInput{
		CartID:         req.CartID,
		PaymentMethod:  req.PaymentMethod,
		BillingAddress: req.BillingAddress,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// 注文＋カート明細のスナップショット
func (h *OrderHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.GetOrderWithCartSnapshot(c.Request().Context(), getActor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req OrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateOrder(c.Request().Context(), getActor(c), id, usecase.UpdateOrderInput{
		PaymentMethod:  req.PaymentMethod,
		BillingAddress: req.BillingAddress,
		Status:         req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) auditLogs(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.ListAuditLogs(c.Request().Context(), getActor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) softDelete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	return writeError(c, h.uc.SoftDelete(c.Request().Context(), id))
}

func (h *OrderHandler) delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	return writeError(c, h.uc.Delete(c.Request().Context(), id))
}
