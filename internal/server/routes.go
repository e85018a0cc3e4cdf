package server

import (
	"net/http"

	"goodstay/internal/config"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	//公開API
	h.Product.RegisterRoutes(e)
	h.Checkout.RegisterRoutes(e)
	h.Webhook.RegisterRoutes(e)
	h.Booking.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e)

	//管理API（JWT必須）
	h.AdminOrder.RegisterRoutes(e, cfg)
	h.AdminBooking.RegisterRoutes(e, cfg)
	h.AdminProduct.RegisterRoutes(e, cfg)
}
