package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"spotkeeper/services"
)

// 由 AuthMiddleware 寫入 gin.Context 的鍵
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Handler 持有各服務，供路由綁定
type Handler struct {
	Lots       *services.LotService
	Allocation *services.AllocationService
	Reports    *services.ReportService
	Users      *services.UserService

	JWTSecret []byte
	TokenTTL  time.Duration
}

// pathID 解析路徑上的正整數 ID；失敗時已寫出 400
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "無效的 ID", "id must be a positive integer", "ERR_INVALID_ID")
		return 0, false
	}
	return id, true
}

// currentUserID 取出已驗證的使用者 ID
func currentUserID(c *gin.Context) (int, bool) {
	v, exists := c.Get(ContextUserID)
	userID, ok := v.(int)
	if !exists || !ok {
		ErrorResponse(c, http.StatusUnauthorized, "未授權", "user_id not found in token", "ERR_NO_USER_ID")
		return 0, false
	}
	return userID, true
}
