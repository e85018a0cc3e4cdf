package handler

import (
	"io"
	"net/http"

	"goodstay/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Stripe Webhook受け口
type WebhookHandler struct {
	uc *usecase.ReconcileUsecase
}

// DI
func NewWebhookHandler(uc *usecase.ReconcileUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/stripe", h.handle)
}

func (h *WebhookHandler) handle(c echo.Context) error {
	//署名検証に生bodyが必要
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	if err := h.uc.HandleWebhook(c.Request().Context(), payload, sig); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
