package service

import (
	"context"
	"sync"
	"time"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/message"
	"github.com/cydxin/community-sdk/models"
	"github.com/cydxin/community-sdk/repository"
	"go.uber.org/zap"
)

// Target 可审核目标的统一视图
type Target struct {
	Kind       cons.TargetKind   `json:"kind"`
	ID         uint64            `json:"id"`
	AuthorID   uint64            `json:"author_id"`
	Summary    string            `json:"summary"`
	Moderation models.Moderation `json:"moderation"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TargetHandler 按目标类型注册的存取实现
type TargetHandler interface {
	Load(ctx context.Context, id uint64) (*Target, error)
	// UpdateModeration 在行锁内修改审核记录；fn 返回 repository.ErrSkip 表示不写
	UpdateModeration(ctx context.Context, id uint64, fn func(m *models.Moderation) error) (*Target, error)
	// Delete 墓碑化并级联；已删除返回 false
	Delete(ctx context.Context, id uint64) (bool, error)
	// ListFlagged hidden + under_review，新的在前
	ListFlagged(ctx context.Context, skip, limit int) ([]Target, error)
}

// ModerationService 审核状态机：自动评分、举报、管理员操作
type ModerationService struct {
	*Service

	mu       sync.RWMutex
	handlers map[cons.TargetKind]TargetHandler

	now func() time.Time
}

func NewModerationService(s *Service) *ModerationService {
	m := &ModerationService{
		Service:  s,
		handlers: make(map[cons.TargetKind]TargetHandler),
		now:      time.Now,
	}
	if s.Threads != nil {
		m.handlers[cons.TargetPost] = postTarget{repo: s.Threads}
		m.handlers[cons.TargetComment] = commentTarget{repo: s.Threads}
	}
	return m
}

// Register 注册/覆盖某类目标的实现（例如 project）
func (m *ModerationService) Register(kind cons.TargetKind, h TargetHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = h
}

func (m *ModerationService) handler(kind cons.TargetKind) (TargetHandler, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("unknown target kind %q", kind)
	}
	m.mu.RLock()
	h, ok := m.handlers[kind]
	m.mu.RUnlock()
	if !ok {
		return nil, &apperr.Error{Kind: apperr.KindNotFound, Msg: "no handler for " + string(kind)}
	}
	return h, nil
}

// notifyAuthor 审核类通知，作者自己就是接收人（sender 为操作者，自动审核时等于作者）
func (m *ModerationService) notifyAuthor(ctx context.Context, t *Target, sender uint64, action cons.ModerationAction, reason string) {
	if m.Notify == nil || t == nil || t.AuthorID == 0 {
		return
	}
	m.Notify.emitBestEffort(ctx, EmitRequest{
		RecipientID: t.AuthorID,
		SenderID:    sender,
		TargetType:  t.Kind,
		TargetID:    t.ID,
		Payload: message.ModerationPayload{
			Kind:   t.Kind,
			Action: action,
			Reason: reason,
			Score:  t.Moderation.ToxicityScore,
		},
	})
}

// AfterAutoModeration 创建/编辑后调用，进入 hidden 时通知作者
func (m *ModerationService) AfterAutoModeration(ctx context.Context, t *Target, newlyHidden bool) {
	if !newlyHidden {
		return
	}
	m.logger().Info("content auto hidden",
		zap.String("kind", string(t.Kind)),
		zap.Uint64("id", t.ID),
		zap.Float64("score", t.Moderation.ToxicityScore),
		zap.String("reason", t.Moderation.FlagReason))
	m.notifyAuthor(ctx, t, t.AuthorID, cons.ActionHidden, t.Moderation.FlagReason)
}

func requireAdmin(who Identity) error {
	if !who.IsAdmin() {
		return apperr.Forbidden("需要管理员权限")
	}
	return nil
}

// Restore hidden/under_review -> active；已是 active 视为成功
func (m *ModerationService) Restore(ctx context.Context, who Identity, kind cons.TargetKind, id uint64) (*Target, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	h, err := m.handler(kind)
	if err != nil {
		return nil, err
	}
	changed := false
	t, err := h.UpdateModeration(ctx, id, func(cur *models.Moderation) error {
		if cur.Status == cons.StatusDeleted {
			return apperr.NotFound(string(kind), id)
		}
		next, ok := restoreModeration(*cur, who.UserID, m.now())
		if !ok {
			return repository.ErrSkip
		}
		*cur = next
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		m.notifyAuthor(ctx, t, who.UserID, cons.ActionRestored, "")
	}
	return t, nil
}

// HardDelete 任意非 deleted -> deleted，级联删除并通知作者；已删除视为成功
func (m *ModerationService) HardDelete(ctx context.Context, who Identity, kind cons.TargetKind, id uint64, reason string) (*Target, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	h, err := m.handler(kind)
	if err != nil {
		return nil, err
	}
	deleted, err := h.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := h.UpdateModeration(ctx, id, func(cur *models.Moderation) error {
		if !deleted {
			return repository.ErrSkip
		}
		stampReviewer(cur, who.UserID, m.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if deleted {
		m.logger().Info("content hard deleted",
			zap.String("kind", string(kind)), zap.Uint64("id", id), zap.Uint64("admin_id", who.UserID))
		m.notifyAuthor(ctx, t, who.UserID, cons.ActionDeleted, reason)
	}
	return t, nil
}

// Escalate active/hidden -> under_review，只能人工触发
func (m *ModerationService) Escalate(ctx context.Context, who Identity, kind cons.TargetKind, id uint64) (*Target, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	h, err := m.handler(kind)
	if err != nil {
		return nil, err
	}
	return h.UpdateModeration(ctx, id, func(cur *models.Moderation) error {
		if cur.Status == cons.StatusDeleted {
			return apperr.NotFound(string(kind), id)
		}
		next, ok := escalateModeration(*cur, who.UserID, m.now())
		if !ok {
			return repository.ErrSkip
		}
		*cur = next
		return nil
	})
}

// MarkReviewed 只记录审核人和时间，不改状态和举报
func (m *ModerationService) MarkReviewed(ctx context.Context, who Identity, kind cons.TargetKind, id uint64) (*Target, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	h, err := m.handler(kind)
	if err != nil {
		return nil, err
	}
	return h.UpdateModeration(ctx, id, func(cur *models.Moderation) error {
		if cur.Status == cons.StatusDeleted {
			return apperr.NotFound(string(kind), id)
		}
		stampReviewer(cur, who.UserID, m.now())
		return nil
	})
}

// FlaggedItem 待审核条目
type FlaggedItem struct {
	Target
	ReportCount int64 `json:"report_count"`
}

// ListFlagged 列出 hidden + under_review 的内容及其举报数
func (m *ModerationService) ListFlagged(ctx context.Context, who Identity, kind cons.TargetKind, skip, limit int) ([]FlaggedItem, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	h, err := m.handler(kind)
	if err != nil {
		return nil, err
	}
	targets, err := h.ListFlagged(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ID)
	}
	counts, err := m.Reports.CountByTargets(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	out := make([]FlaggedItem, 0, len(targets))
	for _, t := range targets {
		out = append(out, FlaggedItem{Target: t, ReportCount: counts[t.ID]})
	}
	return out, nil
}

// ListReports 目标的举报记录，按时间顺序
func (m *ModerationService) ListReports(ctx context.Context, who Identity, kind cons.TargetKind, id uint64) ([]models.Report, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	h, err := m.handler(kind)
	if err != nil {
		return nil, err
	}
	if _, err := h.Load(ctx, id); err != nil {
		return nil, err
	}
	return m.Reports.ListByTarget(ctx, kind, id)
}

// -------------------- 内置目标 --------------------

type postTarget struct {
	repo repository.ThreadRepository
}

func postToTarget(p *models.Post) *Target {
	return &Target{
		Kind:       cons.TargetPost,
		ID:         p.ID,
		AuthorID:   p.AuthorID,
		Summary:    p.Title,
		Moderation: p.Moderation,
		CreatedAt:  p.CreatedAt,
	}
}

func (h postTarget) Load(ctx context.Context, id uint64) (*Target, error) {
	p, err := h.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return postToTarget(p), nil
}

func (h postTarget) UpdateModeration(ctx context.Context, id uint64, fn func(m *models.Moderation) error) (*Target, error) {
	p, err := h.repo.UpdatePost(ctx, id, func(p *models.Post) error { return fn(&p.Moderation) })
	if err != nil {
		return nil, err
	}
	return postToTarget(p), nil
}

func (h postTarget) Delete(ctx context.Context, id uint64) (bool, error) {
	return h.repo.DeletePost(ctx, id)
}

func (h postTarget) ListFlagged(ctx context.Context, skip, limit int) ([]Target, error) {
	posts, err := h.repo.ListPosts(ctx, repository.ListQuery{
		Statuses: []cons.ModerationStatus{cons.StatusHidden, cons.StatusUnderReview},
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Target, 0, len(posts))
	for i := range posts {
		out = append(out, *postToTarget(&posts[i]))
	}
	return out, nil
}

type commentTarget struct {
	repo repository.ThreadRepository
}

func commentToTarget(c *models.Comment) *Target {
	return &Target{
		Kind:       cons.TargetComment,
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		Summary:    message.Excerpt(c.Body),
		Moderation: c.Moderation,
		CreatedAt:  c.CreatedAt,
	}
}

func (h commentTarget) Load(ctx context.Context, id uint64) (*Target, error) {
	c, err := h.repo.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	return commentToTarget(c), nil
}

func (h commentTarget) UpdateModeration(ctx context.Context, id uint64, fn func(m *models.Moderation) error) (*Target, error) {
	c, err := h.repo.UpdateComment(ctx, id, func(c *models.Comment) error { return fn(&c.Moderation) })
	if err != nil {
		return nil, err
	}
	return commentToTarget(c), nil
}

func (h commentTarget) Delete(ctx context.Context, id uint64) (bool, error) {
	return h.repo.DeleteComment(ctx, id)
}

func (h commentTarget) ListFlagged(ctx context.Context, skip, limit int) ([]Target, error) {
	comments, err := h.repo.ListCommentsByStatus(ctx, repository.ListQuery{
		Statuses: []cons.ModerationStatus{cons.StatusHidden, cons.StatusUnderReview},
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Target, 0, len(comments))
	for i := range comments {
		out = append(out, *commentToTarget(&comments[i]))
	}
	return out, nil
}
