package models

import (
	"time"

	"github.com/cydxin/community-sdk/cons"
	"gorm.io/gorm"
)

var prefix = "cm_"

// SetTablePrefix 修改表前缀，必须在第一次使用模型之前调用（gorm 会缓存 schema）
func SetTablePrefix(p string) {
	if p != "" {
		prefix = p
	}
}

// Moderation 内嵌的审核记录，列名统一加 mod_ 前缀
// 举报明细在 Report 表（按插入顺序即为 reports 列表）
type Moderation struct {
	Status        cons.ModerationStatus `gorm:"size:20;not null;default:'active';index"`
	ToxicityScore float64               `gorm:"not null;default:0"`
	AutoFlagged   bool                  `gorm:"not null;default:false"`
	FlagReason    string                `gorm:"size:32"`
	ReviewedBy    *uint64
	ReviewedAt    *time.Time
}

// VisibleTo 判断 viewer 能否看到内容
// deleted 只有管理员可见；hidden/under_review 作者和管理员可见
func (m Moderation) VisibleTo(viewerID, authorID uint64, admin bool) bool {
	if admin {
		return true
	}
	switch m.Status {
	case cons.StatusActive:
		return true
	case cons.StatusHidden, cons.StatusUnderReview:
		return viewerID != 0 && viewerID == authorID
	}
	return false
}

// Warning 作者/管理员看到被隐藏内容时需要提示
func (m Moderation) Warning() bool {
	return m.Status == cons.StatusHidden || m.Status == cons.StatusUnderReview
}

// Post 帖子
type Post struct {
	ID           uint64     `gorm:"primarykey"`
	AuthorID     uint64     `gorm:"index;not null"`
	Title        string     `gorm:"size:200;not null"`
	Body         string     `gorm:"type:text;not null"`
	BodyHTML     string     `gorm:"type:text"`              // 写入时渲染一次
	UpvoteCount  int64      `gorm:"not null;default:0"`     // = 点赞集合大小，只在点赞事务里重算
	CommentCount int64      `gorm:"not null;default:0"`     // 未删除的顶级评论数
	Moderation   Moderation `gorm:"embedded;embeddedPrefix:mod_"`
	CreatedAt    time.Time  `gorm:"index"`
	UpdatedAt    time.Time
}

func (Post) TableName() string { return prefix + "post" }

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.Moderation.Status == "" {
		p.Moderation.Status = cons.StatusActive
	}
	return nil
}

// Comment 评论，两级结构：ParentID 为 nil 是顶级评论，否则是回复（叶子节点）
type Comment struct {
	ID          uint64     `gorm:"primarykey"`
	PostID      uint64     `gorm:"index;not null"`
	AuthorID    uint64     `gorm:"index;not null"`
	ParentID    *uint64    `gorm:"index"`
	Body        string     `gorm:"type:text;not null"`
	BodyHTML    string     `gorm:"type:text"`
	ReplyCount  int64      `gorm:"not null;default:0"` // 未删除的回复数，回复本身恒为 0
	UpvoteCount int64      `gorm:"not null;default:0"`
	Moderation  Moderation `gorm:"embedded;embeddedPrefix:mod_"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

func (Comment) TableName() string { return prefix + "comment" }

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.Moderation.Status == "" {
		c.Moderation.Status = cons.StatusActive
	}
	return nil
}

// IsReply 是否回复
func (c *Comment) IsReply() bool { return c.ParentID != nil }

// Upvote 点赞集合，(target_kind, target_id, user_id) 唯一
type Upvote struct {
	ID         uint64          `gorm:"primarykey"`
	TargetKind cons.TargetKind `gorm:"size:16;not null;uniqueIndex:idx_upvote_target_user,priority:1"`
	TargetID   uint64          `gorm:"not null;uniqueIndex:idx_upvote_target_user,priority:2"`
	UserID     uint64          `gorm:"not null;uniqueIndex:idx_upvote_target_user,priority:3;index"`
	CreatedAt  time.Time
}

func (Upvote) TableName() string { return prefix + "upvote" }

// Report 举报流水，只追加；同一举报人对同一目标只记一条
type Report struct {
	ID         uint64          `gorm:"primarykey"`
	TargetKind cons.TargetKind `gorm:"size:16;not null;uniqueIndex:idx_report_target_reporter,priority:1;index:idx_report_target,priority:1"`
	TargetID   uint64          `gorm:"not null;uniqueIndex:idx_report_target_reporter,priority:2;index:idx_report_target,priority:2"`
	ReporterID uint64          `gorm:"not null;uniqueIndex:idx_report_target_reporter,priority:3"`
	Reason     string          `gorm:"size:32;not null"`
	Details    string          `gorm:"size:500"`
	CreatedAt  time.Time
}

func (Report) TableName() string { return prefix + "report" }
