package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spotkeeper/models"
)

type CheckInInput struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
}

// CheckIn 在指定停車場佔用一個空車位
func (h *Handler) CheckIn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	lotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input CheckInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", "請提供車牌號碼", "ERR_INVALID_INPUT")
		return
	}

	view, err := h.Allocation.CheckIn(c.Request.Context(), lotID, userID, input.VehicleNumber)
	if err != nil {
		respondError(c, "進場失敗", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "進場成功", view.ToResponse())
}

// CheckOut 結束預約並計算費用
func (h *Handler) CheckOut(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.Allocation.CheckOut(c.Request.Context(), bookingID, userID)
	if err != nil {
		respondError(c, "出場失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "出場成功", view.ToResponse())
}

func (h *Handler) ActiveBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	views, err := h.Allocation.ActiveBookings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "查詢預約失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", bookingResponses(views))
}

func (h *Handler) BookingHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	views, err := h.Allocation.History(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "查詢歷史紀錄失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", bookingResponses(views))
}

// AllBookings 所有已結束的預約（管理員）
func (h *Handler) AllBookings(c *gin.Context) {
	views, err := h.Allocation.AllClosedBookings(c.Request.Context())
	if err != nil {
		respondError(c, "查詢預約失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", bookingResponses(views))
}

func bookingResponses(views []models.BookingView) []models.BookingResponse {
	resp := make([]models.BookingResponse, 0, len(views))
	for i := range views {
		resp = append(resp, views[i].ToResponse())
	}
	return resp
}
