package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
)

type staticResolver map[string]service.Identity

func (r staticResolver) Resolve(_ context.Context, token string) (service.Identity, error) {
	id, ok := r[token]
	if !ok {
		return service.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

var resolver = staticResolver{
	"u1":  {UserID: 1, Role: cons.RoleUser},
	"adm": {UserID: 9, Role: cons.RoleAdmin},
}

func newRouter(opt *AuthOptions, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{GinAuthMiddleware(resolver, opt)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGinAuthMiddleware(t *testing.T) {
	r := newRouter(nil)

	if w := do(r, "/x", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", w.Code)
	}
	if w := do(r, "/x", "nope"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", w.Code)
	}
	w := do(r, "/x", "u1")
	if w.Code != http.StatusOK || w.Body.String() != `{"role":"user","user_id":1}` {
		t.Fatalf("bearer: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "/x?token=adm", ""); w.Code != http.StatusOK {
		t.Fatalf("query token: status %d", w.Code)
	}
}

func TestGinAuthMiddleware_Optional(t *testing.T) {
	r := newRouter(&AuthOptions{Optional: true})

	w := do(r, "/x", "")
	if w.Code != http.StatusOK || w.Body.String() != `{"role":"","user_id":0}` {
		t.Fatalf("anonymous: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "/x", "nope"); w.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token must still be rejected, got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(&AuthOptions{Optional: true}, RequireAdmin())

	if w := do(r, "/x", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d", w.Code)
	}
	if w := do(r, "/x", "u1"); w.Code != http.StatusForbidden {
		t.Fatalf("user: status %d", w.Code)
	}
	if w := do(r, "/x", "adm"); w.Code != http.StatusOK {
		t.Fatalf("admin: status %d", w.Code)
	}
}
