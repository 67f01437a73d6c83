package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
)

// ErrMissingToken 请求里没有 token
var ErrMissingToken = errors.New("missing token")

// AuthService 提供“鉴权核心能力”，供 middleware 和 WS 握手使用。
// - 解析 token（Bearer 优先，其次 query）
// - 校验 token -> Identity（默认 Redis，可替换为任意 IdentityResolver）
type AuthService struct {
	token    *TokenService
	resolver IdentityResolver
}

// NewAuthService 使用 Redis token 存储
func NewAuthService(rdb *redis.Client) *AuthService {
	ts := NewTokenService(rdb)
	return &AuthService{token: ts, resolver: tokenResolver{ts}}
}

// NewAuthServiceWithResolver 使用外部身份解析（例如 JWT）
func NewAuthServiceWithResolver(r IdentityResolver) *AuthService {
	return &AuthService{resolver: r}
}

// Tokens Redis token 存储，使用外部 resolver 时为 nil
func (a *AuthService) Tokens() *TokenService { return a.token }

// ExtractToken 从 HTTP 请求中提取 token：优先 Authorization: Bearer，其次 query: token。
func (a *AuthService) ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}

	// Authorization: Bearer <token>
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// query: ?token=xxx（浏览器 WebSocket 无法带 header）
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate token -> Identity
func (a *AuthService) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	if a.resolver == nil {
		return Identity{}, errors.New("identity resolver is nil")
	}
	id, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if id.UserID == 0 {
		return Identity{}, errors.New("invalid identity")
	}
	return id, nil
}

// AuthenticateRequest 从请求里抽 token 并鉴权。
func (a *AuthService) AuthenticateRequest(ctx context.Context, r *http.Request) (Identity, string, error) {
	t := a.ExtractToken(r)
	id, err := a.Authenticate(ctx, t)
	return id, t, err
}

// Resolve 让 AuthService 本身也满足 IdentityResolver
func (a *AuthService) Resolve(ctx context.Context, token string) (Identity, error) {
	return a.Authenticate(ctx, token)
}

type tokenResolver struct {
	ts *TokenService
}

func (r tokenResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	return r.ts.Lookup(ctx, token)
}
