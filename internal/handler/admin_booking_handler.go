package handler

import (
	"net/http"
	"strconv"

	"goodstay/internal/config"
	"goodstay/internal/middleware"
	"goodstay/internal/repository"
	"goodstay/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminBookingHandler struct {
	uc *usecase.AdminBookingUsecase
}

func NewAdminBookingHandler(uc *usecase.AdminBookingUsecase) *AdminBookingHandler {
	return &AdminBookingHandler{uc: uc}
}

type BookingStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminBookingHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))

	admin.GET("/bookings", h.list)
	admin.GET("/bookings/:id", h.detail)
	admin.PUT("/bookings/:id/status", h.updateStatus)
}

func (h *AdminBookingHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	out, err := h.uc.List(c.Request().Context(), repository.BookingListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		Date:   c.QueryParam("date"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminBookingHandler) detail(c echo.Context) error {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Get(c.Request().Context(), bookingID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminBookingHandler) updateStatus(c echo.Context) error {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req BookingStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	// ★操作した管理者IDを取得（監査ログ用）
	adminID, ok := getAdminIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.UpdateStatus(
		c.Request().Context(),
		adminID,
		bookingID,
		usecase.AdminUpdateBookingStatusInput{Status: req.Status},
	); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"updated": true})
}
