package handler

import (
	"net/http"

	"goodstay/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkout のHTTP
type CheckoutHandler struct {
	checkoutUC  *usecase.CheckoutUsecase
	reconcileUC *usecase.ReconcileUsecase
}

// DI
func NewCheckoutHandler(checkoutUC *usecase.CheckoutUsecase, reconcileUC *usecase.ReconcileUsecase) *CheckoutHandler {
	return &CheckoutHandler{checkoutUC: checkoutUC, reconcileUC: reconcileUC}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/checkout/session", h.createSession)
	e.GET("/checkout/session/:id", h.getSession)
}

func (h *CheckoutHandler) createSession(c echo.Context) error {
	var req usecase.CreateSessionInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkoutUC.CreateSession(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 成功ページからのポーリング。決済済みならこの時点で注文を確定する。
func (h *CheckoutHandler) getSession(c echo.Context) error {
	sessionID := c.Param("id")

	out, err := h.reconcileUC.ReconcileSession(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
