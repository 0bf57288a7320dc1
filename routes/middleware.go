package routes

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"spotkeeper/handlers"
	"spotkeeper/utils"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	RequestIDHeader = "X-Request-ID"
)

// AuthMiddleware 驗證 JWT token，並提取 user_id 和角色
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "缺少 Authorization 標頭", "Authorization header is required", "ERR_NO_AUTH_HEADER")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "無效的 Authorization 格式",
				"Authorization header must be in the format 'Bearer <token>'", "ERR_INVALID_AUTH_FORMAT")
			return
		}

		claims, err := utils.ParseToken(parts[1], secret)
		if err != nil {
			log.Printf("Token parsing error: %v", err)
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "token 已過期", "Token has expired", "ERR_TOKEN_EXPIRED")
			case errors.Is(err, utils.ErrInvalidClaims):
				abort(c, http.StatusUnauthorized, "無效的 token 內容", err.Error(), "ERR_INVALID_CLAIMS")
			default:
				abort(c, http.StatusUnauthorized, "無效的 token", err.Error(), "ERR_INVALID_TOKEN")
			}
			return
		}

		role := RoleUser
		if claims.IsAdmin {
			role = RoleAdmin
		}
		c.Set(handlers.ContextUserID, claims.UserID)
		c.Set(handlers.ContextRole, role)
		c.Next()
	}
}

// RoleMiddleware 檢查角色是否符合要求；admin 可訪問所有端點
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(handlers.ContextRole)
		roleStr, isString := role.(string)
		if !ok || !isString {
			abort(c, http.StatusUnauthorized, "無法獲取角色資訊", "Role not found in context", "ERR_ROLE_NOT_FOUND")
			return
		}
		if roleStr == RoleAdmin {
			c.Next()
			return
		}
		for _, allowed := range allowedRoles {
			if roleStr == allowed {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "權限不足", "Insufficient role permissions", "ERR_INSUFFICIENT_PERMISSIONS")
	}
}

// RequestIDMiddleware 沿用呼叫端的 X-Request-ID，沒有則產生一個
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RateLimiter 每個使用者各自一個 token bucket
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[int]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 每分鐘 perMinute 次，可瞬間用完
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		visitors: make(map[int]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     10 * time.Minute,
	}
}

func (rl *RateLimiter) getLimiter(userID int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	// 順便清掉閒置過久的使用者
	for id, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, id)
		}
	}

	v, exists := rl.visitors[userID]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[userID] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Limit 須放在 AuthMiddleware 之後
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(handlers.ContextUserID)
		id, _ := userID.(int)
		if !rl.getLimiter(id).Allow() {
			abort(c, http.StatusTooManyRequests, "請求過於頻繁", "Too many requests", "ERR_RATE_LIMITED")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, message, err, code string) {
	handlers.ErrorResponse(c, status, message, err, code)
	c.Abort()
}
