package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"spotkeeper/services"
)

// Occupancy 全部與各停車場的佔用統計（管理員）
func (h *Handler) Occupancy(c *gin.Context) {
	ctx := c.Request.Context()
	overall, err := h.Reports.OverallOccupancy(ctx)
	if err != nil {
		respondError(c, "查詢佔用統計失敗", err)
		return
	}
	perLot, err := h.Reports.PerLotOccupancy(ctx)
	if err != nil {
		respondError(c, "查詢佔用統計失敗", err)
		return
	}

	lots := make([]services.LotOccupancy, 0, len(perLot))
	for _, occ := range perLot {
		lots = append(lots, occ)
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].LotID < lots[j].LotID })

	SuccessResponse(c, http.StatusOK, "查詢成功", gin.H{
		"overall": overall,
		"lots":    lots,
	})
}

// MySummary 目前使用者在各停車場的花費與次數
func (h *Handler) MySummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	summary, err := h.Reports.UserCostSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "查詢統計失敗", err)
		return
	}

	lots := make([]services.LotCost, 0, len(summary))
	for _, cost := range summary {
		lots = append(lots, cost)
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].LotID < lots[j].LotID })
	SuccessResponse(c, http.StatusOK, "查詢成功", lots)
}
