package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spotkeeper/models"
)

// CreateLot 建立停車場與車位（管理員）
func (h *Handler) CreateLot(c *gin.Context) {
	var input models.LotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error(), "ERR_INVALID_INPUT")
		return
	}

	lot, err := h.Lots.CreateLot(c.Request.Context(), input)
	if err != nil {
		respondError(c, "建立停車場失敗", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "停車場建立成功", lot.ToResponse())
}

// EditLot 修改停車場資料，capacity 欄位會被忽略
func (h *Handler) EditLot(c *gin.Context) {
	lotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input models.LotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error(), "ERR_INVALID_INPUT")
		return
	}

	lot, err := h.Lots.EditLot(c.Request.Context(), lotID, input)
	if err != nil {
		respondError(c, "更新停車場失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "停車場更新成功", lot.ToResponse())
}

func (h *Handler) DeleteLot(c *gin.Context) {
	lotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Lots.DeleteLot(c.Request.Context(), lotID); err != nil {
		respondError(c, "刪除停車場失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "停車場刪除成功", nil)
}

// GetLotDetails 停車場與每個車位的狀態，佔用中的車位附上預約與使用者
func (h *Handler) GetLotDetails(c *gin.Context) {
	lotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lot, details, err := h.Lots.LotDetails(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, "查詢停車場失敗", err)
		return
	}

	spots := make([]models.SpotDetailResponse, 0, len(details))
	for i := range details {
		spots = append(spots, details[i].ToResponse())
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", gin.H{
		"lot":   lot.ToResponse(),
		"spots": spots,
	})
}

// ListLots 所有停車場及剩餘車位
func (h *Handler) ListLots(c *gin.Context) {
	lots, err := h.Lots.ListLots(c.Request.Context())
	if err != nil {
		respondError(c, "查詢停車場失敗", err)
		return
	}
	resp := make([]models.ParkingLotResponse, 0, len(lots))
	for i := range lots {
		resp = append(resp, lots[i].ToResponse())
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", resp)
}

func (h *Handler) AddSpot(c *gin.Context) {
	lotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	spot, err := h.Lots.AddSpot(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, "新增車位失敗", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "車位新增成功", spot.ToResponse())
}

func (h *Handler) DeleteSpot(c *gin.Context) {
	spotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Lots.DeleteSpot(c.Request.Context(), spotID); err != nil {
		respondError(c, "刪除車位失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "車位刪除成功", nil)
}
