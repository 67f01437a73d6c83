package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cydxin/community-sdk/apperr"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{apperr.Validation("title is required"), http.StatusBadRequest, CodeParamError},
		{apperr.InvalidNesting(3), http.StatusBadRequest, CodeInvalidNesting},
		{apperr.Forbidden("admin only"), http.StatusForbidden, CodePermissionDeny},
		{apperr.NotFound("post", 1), http.StatusNotFound, CodeNotFound},
		{apperr.Conflict("already deleted"), http.StatusConflict, CodeConflict},
		{errors.New("db down"), http.StatusOK, CodeInternalError},
	}
	for _, tc := range cases {
		status, r := FromError(tc.err)
		if status != tc.status || r.Code != tc.code {
			t.Fatalf("%v: got %d/%d, want %d/%d", tc.err, status, r.Code, tc.status, tc.code)
		}
	}

	// 内部错误不向外暴露细节
	_, r := FromError(errors.New("dial tcp 10.0.0.1:3306"))
	if strings.Contains(r.Msg, "10.0.0.1") {
		t.Fatalf("internal detail leaked: %q", r.Msg)
	}
}

func TestWriteJSONWithStatus(t *testing.T) {
	w := httptest.NewRecorder()
	Error(CodeTokenInvalid, "missing token").WriteJSONWithStatus(w, http.StatusUnauthorized)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"code":10004,"msg":"missing token"}` {
		t.Fatalf("body = %s", got)
	}
}
