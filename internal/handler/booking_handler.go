package handler

import (
	"net/http"

	"goodstay/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /bookings のHTTP
type BookingHandler struct {
	uc *usecase.BookingUsecase
}

// DI
func NewBookingHandler(uc *usecase.BookingUsecase) *BookingHandler {
	return &BookingHandler{uc: uc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/bookings", h.submit)
	e.GET("/bookings/slots", h.slots)
}

func (h *BookingHandler) submit(c echo.Context) error {
	var req usecase.SubmitBookingInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SubmitBooking(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

func (h *BookingHandler) slots(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date is required"})
	}

	slots, err := h.uc.AvailableSlots(date)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SlotsResponse{Date: date, Slots: slots})
}
