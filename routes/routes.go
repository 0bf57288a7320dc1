package routes

import (
	"github.com/gin-gonic/gin"

	"spotkeeper/handlers"
)

// Path 註冊 /v1 底下所有路由
func Path(router *gin.RouterGroup, h *handlers.Handler, checkInLimiter *RateLimiter) {
	// 版本控制
	v1 := router.Group("/v1")
	{
		// 測試路由
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(200, gin.H{"message": "pong"})
		})

		// 公開路由：不需要 token 驗證
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		// 受保護路由：需要 token 驗證
		user := v1.Group("")
		user.Use(AuthMiddleware(h.JWTSecret), RoleMiddleware(RoleUser))
		{
			user.GET("/lots", h.ListLots)
			user.POST("/lots/:id/check-in", checkInLimiter.Limit(), h.CheckIn)
			user.POST("/bookings/:id/check-out", h.CheckOut)
			user.GET("/bookings/active", h.ActiveBookings)
			user.GET("/bookings/history", h.BookingHistory)
			user.GET("/reports/me", h.MySummary)
		}

		// 管理員專屬路由
		admin := v1.Group("/admin")
		admin.Use(AuthMiddleware(h.JWTSecret), RoleMiddleware(RoleAdmin))
		{
			admin.POST("/lots", h.CreateLot)
			admin.GET("/lots/:id", h.GetLotDetails)
			admin.PUT("/lots/:id", h.EditLot)
			admin.DELETE("/lots/:id", h.DeleteLot)
			admin.POST("/lots/:id/spots", h.AddSpot)
			admin.DELETE("/spots/:id", h.DeleteSpot)
			admin.GET("/users", h.ListUsers)
			admin.DELETE("/users/:id", h.RemoveUser)
			admin.GET("/bookings", h.AllBookings)
			admin.GET("/reports/occupancy", h.Occupancy)
		}
	}
}

// NewRouter 建立 gin 引擎並掛上共用中介層與 /api 路由
func NewRouter(h *handlers.Handler, checkInLimiter *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestIDMiddleware())

	// 創建一個 API 路由組
	api := r.Group("/api")
	{
		Path(api, h, checkInLimiter)
	}
	return r
}
