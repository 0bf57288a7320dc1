package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"spotkeeper/services"
)

// APIResponse 定義統一的 API 回應結構
type APIResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"` // omitempty 表示如果為空則不顯示
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse 返回成功的回應
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 返回失敗的回應
func ErrorResponse(c *gin.Context, statusCode int, message, err, code string) {
	c.JSON(statusCode, APIResponse{
		Status:  false,
		Message: message,
		Error:   err,
		Code:    code,
	})
}

// errorStatus 錯誤種類對應的 HTTP 狀態碼與錯誤代碼
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "ERR_INVALID_INPUT"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "ERR_NOT_FOUND"
	case errors.Is(err, services.ErrLotFull):
		return http.StatusConflict, "ERR_LOT_FULL"
	case errors.Is(err, services.ErrCapacityExceeded):
		return http.StatusConflict, "ERR_CAPACITY_EXCEEDED"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "ERR_CONFLICT"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "ERR_INVALID_CREDENTIALS"
	}
	return http.StatusInternalServerError, "ERR_INTERNAL"
}

// respondError 依錯誤種類回應；未預期的錯誤只記錄在日誌，不回傳細節
func respondError(c *gin.Context, message string, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", message, err)
		ErrorResponse(c, status, message, "internal server error", code)
		return
	}
	ErrorResponse(c, status, message, err.Error(), code)
}
