package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spotkeeper/models"
)

// ListUsers 所有非管理員使用者
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, "查詢使用者失敗", err)
		return
	}
	resp := make([]models.SimpleUserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].ToSimpleResponse())
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", resp)
}

// RemoveUser 移除使用者與其預約；管理員不可移除
func (h *Handler) RemoveUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Users.RemoveUser(c.Request.Context(), userID); err != nil {
		respondError(c, "移除使用者失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "使用者已移除", nil)
}
