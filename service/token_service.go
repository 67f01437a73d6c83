package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cydxin/community-sdk/cons"
	"github.com/go-redis/redis/v8"
)

const (
	// 默认 token 过期时间
	defaultTokenTTL = 7 * 24 * time.Hour
)

// TokenService 不透明 token 的存储与校验，登录由外部协作方完成后调用 Issue。
// Redis Key 设计：
// - cm:token:{token} -> "{userID}:{role}" (String, TTL)
// - cm:user_tokens:{userID} -> Set(token1, token2, ...)
type TokenService struct {
	rdb *redis.Client
}

func NewTokenService(rdb *redis.Client) *TokenService {
	return &TokenService{rdb: rdb}
}

func (s *TokenService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

func (s *TokenService) tokenKey(token string) string {
	return "cm:token:" + token
}

func (s *TokenService) userTokensKey(userID uint64) string {
	return fmt.Sprintf("cm:user_tokens:%d", userID)
}

// GenerateToken 生成一个随机 token（不包含任何用户信息）。
func (s *TokenService) GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue 生成并保存 token
func (s *TokenService) Issue(ctx context.Context, id Identity, ttl time.Duration) (string, error) {
	token, err := s.GenerateToken()
	if err != nil {
		return "", err
	}
	if err := s.StoreToken(ctx, token, id, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// StoreToken 保存 token -> identity 映射，并把 token 加入 user 的 token 集合。
func (s *TokenService) StoreToken(ctx context.Context, token string, id Identity, ttl time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	role := id.Role
	if role == "" {
		role = cons.RoleUser
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token), fmt.Sprintf("%d:%s", id.UserID, role), ttl)
	pipe.SAdd(ctx, s.userTokensKey(id.UserID), token)
	pipe.Expire(ctx, s.userTokensKey(id.UserID), ttl+24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// Lookup 根据 token 取身份。旧格式只有 userID 时角色为 user。
func (s *TokenService) Lookup(ctx context.Context, token string) (Identity, error) {
	if err := s.ensure(); err != nil {
		return Identity{}, err
	}
	val, err := s.rdb.Get(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return Identity{}, err
	}
	uidStr, role, found := strings.Cut(val, ":")
	if !found || role == "" {
		role = cons.RoleUser
	}
	uid, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: uid, Role: role}, nil
}

// RefreshTokenTTL 对 token 续期（同时延长 user token set TTL）。
func (s *TokenService) RefreshTokenTTL(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	id, err := s.Lookup(ctx, token)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, s.tokenKey(token), ttl)
	pipe.Expire(ctx, s.userTokensKey(id.UserID), ttl+24*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeToken 注销单个 token，同时从 user 集合中移除
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if id, err := s.Lookup(ctx, token); err == nil {
		_ = s.rdb.SRem(ctx, s.userTokensKey(id.UserID), token).Err()
	}
	return s.rdb.Del(ctx, s.tokenKey(token)).Err()
}

// RevokeAllTokensByUser 注销用户全部 token（封禁等场景）。
func (s *TokenService) RevokeAllTokensByUser(ctx context.Context, userID uint64) error {
	if err := s.ensure(); err != nil {
		return err
	}
	tokens, err := s.rdb.SMembers(ctx, s.userTokensKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, t := range tokens {
		pipe.Del(ctx, s.tokenKey(t))
	}
	pipe.Del(ctx, s.userTokensKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
