package service

import (
	"context"

	"github.com/cydxin/community-sdk/cons"
)

// Identity 调用方身份，由外部认证协作方给出
type Identity struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == cons.RoleAdmin }

func (i Identity) Anonymous() bool { return i.UserID == 0 }

// IdentityResolver token -> Identity
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}
