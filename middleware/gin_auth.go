package middleware

import (
	"net/http"
	"strings"

	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
)

const (
	// ContextUserIDKey gin context 里保存 user id 的 key
	ContextUserIDKey   = "user_id"
	ContextRoleKey     = "role"
	ContextIdentityKey = "identity"
	ContextTokenKey    = "token"
)

// AuthOptions 可选配置。
type AuthOptions struct {
	// HeaderKey 默认 Authorization
	HeaderKey string
	// QueryKey 默认 token
	QueryKey string
	// Optional 为 true 时没有 token 也放行（匿名身份），token 非法仍然拒绝
	Optional bool
}

func (o *AuthOptions) withDefaults() AuthOptions {
	if o == nil {
		return AuthOptions{HeaderKey: "Authorization", QueryKey: "token"}
	}
	out := *o
	if out.HeaderKey == "" {
		out.HeaderKey = "Authorization"
	}
	if out.QueryKey == "" {
		out.QueryKey = "token"
	}
	return out
}

func extractToken(c *gin.Context, cfg AuthOptions) string {
	ah := strings.TrimSpace(c.GetHeader(cfg.HeaderKey))
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Query(cfg.QueryKey))
}

/*
	GinAuthMiddleware Gin 鉴权中间件：

- 优先从 Authorization: Bearer <token> 读取
- 如果没有，再从 query 参数读取（默认 token=xxx）
- token -> Identity（Redis token 或 JWT，取决于 resolver）成功后写入 gin.Context

使用：router.Use(middleware.GinAuthMiddleware(authService, nil))
*/
func GinAuthMiddleware(resolver service.IdentityResolver, opt *AuthOptions) gin.HandlerFunc {
	cfg := opt.withDefaults()

	return func(c *gin.Context) {
		if resolver == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(response.CodeInternalError, "identity resolver is nil"))
			return
		}

		token := extractToken(c, cfg)
		if token == "" {
			if cfg.Optional {
				c.Set(ContextIdentityKey, service.Identity{})
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "missing token"))
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil || id.UserID == 0 {
			msg := "invalid token"
			if err != nil {
				msg = err.Error()
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, msg))
			return
		}

		c.Set(ContextUserIDKey, id.UserID)
		c.Set(ContextRoleKey, id.Role)
		c.Set(ContextIdentityKey, id)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// RequireAdmin 必须在 GinAuthMiddleware 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "missing token"))
			return
		}
		if !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "admin only"))
			return
		}
		c.Next()
	}
}

// IdentityFrom 读取当前请求身份，未经过鉴权时返回匿名
func IdentityFrom(c *gin.Context) service.Identity {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return service.Identity{}
	}
	id, _ := v.(service.Identity)
	return id
}
