package server

import (
	"net/http"

	"shop/internal/config"
	"shop/internal/handler"
	"shop/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Carts     *handler.CartHandler
	CartItems *handler.CartItemHandler
	Orders    *handler.OrderHandler
	Payments  *handler.PaymentHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	auth := []echo.MiddlewareFunc{middleware.AuthJWT(cfg)}
	optional := []echo.MiddlewareFunc{middleware.AuthOptional(cfg)}
	admin := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.AdminRoleGuard()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Carts.RegisterRoutes(e.Group("/carts"), auth, optional, admin)
	h.CartItems.RegisterRoutes(e.Group("/cart-items"), optional, admin)
	h.Orders.RegisterRoutes(e.Group("/orders"), auth, admin)
	h.Payments.RegisterRoutes(e.Group("/payments"), auth, admin)
}
