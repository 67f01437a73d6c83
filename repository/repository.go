package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/models"
)

// ErrSkip 在 Update 回调中返回，表示无需写库（例如已处于目标状态）
var ErrSkip = errors.New("repository: skip update")

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListQuery 列表查询条件
//
// 可见性：
// - Statuses 非空：只按状态过滤（管理员审核列表）
// - Admin：除 deleted 外全部
// - 其它：active，加上 viewer 自己的 hidden/under_review
type ListQuery struct {
	ViewerID uint64
	Admin    bool
	AuthorID uint64 // 只对帖子列表生效
	Statuses []cons.ModerationStatus
	Skip     int
	Limit    int
}

func (q ListQuery) normalize() ListQuery {
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q
}

// ThreadRepository 帖子/评论/点赞存储
//
// 约定：
// - 计数器只在这里修改，且都是原子的相对增减或集合重算，调用方不做读改写
// - 级联删除在一个原子单元内完成，读者看不到删了一半的树
// - Get* 会返回 deleted 的墓碑，可见性由 service 判断
type ThreadRepository interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id uint64) (*models.Post, error)
	ListPosts(ctx context.Context, q ListQuery) ([]models.Post, error)
	// UpdatePost 在行锁内执行 fn，只落库正文和审核字段
	UpdatePost(ctx context.Context, id uint64, fn func(p *models.Post) error) (*models.Post, error)
	// DeletePost 墓碑化帖子并硬删除全部评论和点赞；已删除返回 false
	DeletePost(ctx context.Context, id uint64) (bool, error)

	// CreateComment 校验父评论（存在、同帖、不是回复）后创建，并给帖子或父评论计数 +1
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id uint64) (*models.Comment, error)
	ListComments(ctx context.Context, postID uint64, q ListQuery) ([]models.Comment, error)
	ListReplies(ctx context.Context, parentID uint64, q ListQuery) ([]models.Comment, error)
	// ListCommentsByStatus 跨帖子按状态列出评论（含回复），用于审核列表
	ListCommentsByStatus(ctx context.Context, q ListQuery) ([]models.Comment, error)
	UpdateComment(ctx context.Context, id uint64, fn func(c *models.Comment) error) (*models.Comment, error)
	// DeleteComment 顶级评论：硬删除回复、墓碑化自身、帖子 comment_count -1；
	// 回复：墓碑化自身、父评论 reply_count -1。已删除返回 false
	DeleteComment(ctx context.Context, id uint64) (bool, error)

	// ToggleUpvote 锁目标行，切换点赞并按集合重算计数，返回新计数和调用者是否已赞
	ToggleUpvote(ctx context.Context, kind cons.TargetKind, id, userID uint64) (int64, bool, error)
	// UpvotedBy 返回 ids 中 userID 已点赞的集合
	UpvotedBy(ctx context.Context, kind cons.TargetKind, ids []uint64, userID uint64) (map[uint64]bool, error)
}

// ReportRepository 举报流水，只追加
type ReportRepository interface {
	// Append 追加举报；同一举报人对同一目标重复举报返回 created=false。
	// position 为追加后该目标的举报条数（1 表示首次被举报）
	Append(ctx context.Context, r *models.Report) (created bool, position int64, err error)
	ListByTarget(ctx context.Context, kind cons.TargetKind, id uint64) ([]models.Report, error)
	CountByTargets(ctx context.Context, kind cons.TargetKind, ids []uint64) (map[uint64]int64, error)
	// CountSince 某时间点（含）之后的举报条数
	CountSince(ctx context.Context, kind cons.TargetKind, id uint64, since time.Time) (int64, error)
}

// NotificationRepository 通知存储
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, recipientID uint64, unreadOnly bool, skip, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)
	MarkRead(ctx context.Context, recipientID uint64, ids []uint64) (int64, error)
	// MarkAllRead 一条批量 UPDATE 完成
	MarkAllRead(ctx context.Context, recipientID uint64) (int64, error)
	Delete(ctx context.Context, recipientID, id uint64) (int64, error)
}
