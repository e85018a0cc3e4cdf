package server

import (
	"time"

	"goodstay/internal/config"
	"goodstay/internal/handler"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Product      *handler.ProductHandler
	Checkout     *handler.CheckoutHandler
	Webhook      *handler.WebhookHandler
	Booking      *handler.BookingHandler
	Auth         *handler.AuthHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminBooking *handler.AdminBookingHandler
	AdminProduct *handler.AdminProductHandler
}

// echoを組み立てて返す（Startは呼ばない）
func New(cfg config.Config, logger *zap.Logger, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	RegisterRoutes(e, cfg, h)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}

// zapでアクセスログを出す
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			//リクエストIDを採番してレスポンスにも返す
			reqID := c.Request().Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			logger.Info("request",
				zap.String("request_id", reqID),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
			)

			return err
		}
	}
}
