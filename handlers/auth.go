package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"spotkeeper/utils"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 註冊一般使用者
func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error(), "ERR_INVALID_INPUT")
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			ErrorResponse(c, http.StatusBadRequest, "密碼太短", err.Error(), "ERR_WEAK_PASSWORD")
			return
		}
		ErrorResponse(c, http.StatusBadRequest, "無法處理密碼", err.Error(), "ERR_INVALID_PASSWORD")
		return
	}

	user, err := h.Users.Register(c.Request.Context(), input.Username, input.Email, hash)
	if err != nil {
		respondError(c, "註冊失敗", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "註冊成功", user.ToSimpleResponse())
}

// Login 驗證帳號密碼並簽發 token
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error(), "ERR_INVALID_INPUT")
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, "登入失敗", err)
		return
	}

	token, err := utils.GenerateToken(user.UserID, user.IsAdmin, h.JWTSecret, h.TokenTTL)
	if err != nil {
		log.Printf("Failed to generate token for user %d: %v", user.UserID, err)
		ErrorResponse(c, http.StatusInternalServerError, "無法產生 token", "internal server error", "ERR_TOKEN_GENERATION")
		return
	}

	log.Printf("User %d logged in", user.UserID)
	SuccessResponse(c, http.StatusOK, "登入成功", gin.H{
		"token": token,
		"user":  user.ToSimpleResponse(),
	})
}
