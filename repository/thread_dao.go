package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadDAO 基于 GORM 的 ThreadRepository 实现
//
// 加锁顺序固定为 帖子 -> 评论，避免创建回复和删除评论互相死锁。
type ThreadDAO struct {
	db *gorm.DB
}

func NewThreadDAO(db *gorm.DB) *ThreadDAO {
	return &ThreadDAO{db: db}
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// targetModel 内置目标类型对应的表；其它类型返回 nil
func targetModel(kind cons.TargetKind) any {
	switch kind {
	case cons.TargetPost:
		return &models.Post{}
	case cons.TargetComment:
		return &models.Comment{}
	}
	return nil
}

// lockTarget 在 tx 内锁住目标行并返回其审核状态
func lockTarget(tx *gorm.DB, kind cons.TargetKind, id uint64) (cons.ModerationStatus, error) {
	var row struct {
		ID        uint64
		ModStatus cons.ModerationStatus
	}
	if err := tx.Model(targetModel(kind)).Clauses(forUpdate).Select("id", "mod_status").
		Where("id = ?", id).Take(&row).Error; err != nil {
		return "", loadErr(err, string(kind), id)
	}
	return row.ModStatus, nil
}

func loadErr(err error, what string, id uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what, id)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

// visible 可见性条件，见 ListQuery
func visible(q ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case len(q.Statuses) > 0:
			return db.Where("mod_status IN ?", q.Statuses)
		case q.Admin:
			return db.Where("mod_status <> ?", cons.StatusDeleted)
		case q.ViewerID != 0:
			return db.Where("(mod_status = ? OR (author_id = ? AND mod_status IN ?))",
				cons.StatusActive, q.ViewerID, []cons.ModerationStatus{cons.StatusHidden, cons.StatusUnderReview})
		default:
			return db.Where("mod_status = ?", cons.StatusActive)
		}
	}
}

func moderationColumns(m models.Moderation) map[string]any {
	return map[string]any{
		"mod_status":         m.Status,
		"mod_toxicity_score": m.ToxicityScore,
		"mod_auto_flagged":   m.AutoFlagged,
		"mod_flag_reason":    m.FlagReason,
		"mod_reviewed_by":    m.ReviewedBy,
		"mod_reviewed_at":    m.ReviewedAt,
	}
}

// -------------------- 帖子 --------------------

func (dao *ThreadDAO) CreatePost(ctx context.Context, p *models.Post) error {
	p.UpvoteCount, p.CommentCount = 0, 0
	return dao.db.WithContext(ctx).Create(p).Error
}

func (dao *ThreadDAO) GetPost(ctx context.Context, id uint64) (*models.Post, error) {
	var p models.Post
	if err := dao.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, loadErr(err, "post", id)
	}
	return &p, nil
}

func (dao *ThreadDAO) ListPosts(ctx context.Context, q ListQuery) ([]models.Post, error) {
	q = q.normalize()
	db := dao.db.WithContext(ctx).Model(&models.Post{}).Scopes(visible(q))
	if q.AuthorID != 0 {
		db = db.Where("author_id = ?", q.AuthorID)
	}
	var out []models.Post
	err := db.Order("created_at DESC, id DESC").Offset(q.Skip).Limit(q.Limit).Find(&out).Error
	return out, err
}

func (dao *ThreadDAO) UpdatePost(ctx context.Context, id uint64, fn func(p *models.Post) error) (*models.Post, error) {
	var out *models.Post
	err := dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.Clauses(forUpdate).First(&p, id).Error; err != nil {
			return loadErr(err, "post", id)
		}
		if err := fn(&p); err != nil {
			if errors.Is(err, ErrSkip) {
				out = &p
				return nil
			}
			return err
		}
		cols := moderationColumns(p.Moderation)
		cols["title"] = p.Title
		cols["body"] = p.Body
		cols["body_html"] = p.BodyHTML
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

func (dao *ThreadDAO) DeletePost(ctx context.Context, id uint64) (bool, error) {
	deleted := false
	err := dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.Clauses(forUpdate).First(&p, id).Error; err != nil {
			return loadErr(err, "post", id)
		}
		if p.Moderation.Status == cons.StatusDeleted {
			return nil
		}

		var commentIDs []uint64
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("target_kind = ? AND target_id IN ?", cons.TargetComment, commentIDs).Delete(&models.Upvote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("target_kind = ? AND target_id = ?", cons.TargetPost, id).Delete(&models.Upvote{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"mod_status":    cons.StatusDeleted,
			"comment_count": 0,
			"upvote_count":  0,
		}).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// -------------------- 评论 --------------------

func (dao *ThreadDAO) CreateComment(ctx context.Context, c *models.Comment) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(forUpdate).First(&post, c.PostID).Error; err != nil {
			return loadErr(err, "post", c.PostID)
		}
		if post.Moderation.Status == cons.StatusDeleted {
			return apperr.NotFound("post", c.PostID)
		}

		if c.ParentID != nil {
			var parent models.Comment
			if err := tx.Clauses(forUpdate).First(&parent, *c.ParentID).Error; err != nil {
				return loadErr(err, "comment", *c.ParentID)
			}
			if parent.Moderation.Status == cons.StatusDeleted {
				return apperr.NotFound("comment", parent.ID)
			}
			if parent.PostID != c.PostID {
				return apperr.Validation("父评论不属于该帖子")
			}
			if parent.IsReply() {
				return apperr.InvalidNesting(parent.ID)
			}
		}

		c.ReplyCount, c.UpvoteCount = 0, 0
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if c.ParentID != nil {
			return tx.Model(&models.Comment{}).Where("id = ?", *c.ParentID).
				UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1)).Error
		}
		return tx.Model(&models.Post{}).Where("id = ?", c.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
}

func (dao *ThreadDAO) GetComment(ctx context.Context, id uint64) (*models.Comment, error) {
	var c models.Comment
	if err := dao.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, loadErr(err, "comment", id)
	}
	return &c, nil
}

func (dao *ThreadDAO) ListComments(ctx context.Context, postID uint64, q ListQuery) ([]models.Comment, error) {
	q = q.normalize()
	var out []models.Comment
	err := dao.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Scopes(visible(q)).
		Order("created_at ASC, id ASC").Offset(q.Skip).Limit(q.Limit).
		Find(&out).Error
	return out, err
}

func (dao *ThreadDAO) ListReplies(ctx context.Context, parentID uint64, q ListQuery) ([]models.Comment, error) {
	q = q.normalize()
	var out []models.Comment
	err := dao.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", parentID).
		Scopes(visible(q)).
		Order("created_at ASC, id ASC").Offset(q.Skip).Limit(q.Limit).
		Find(&out).Error
	return out, err
}

func (dao *ThreadDAO) ListCommentsByStatus(ctx context.Context, q ListQuery) ([]models.Comment, error) {
	q = q.normalize()
	var out []models.Comment
	err := dao.db.WithContext(ctx).Model(&models.Comment{}).
		Scopes(visible(q)).
		Order("created_at DESC, id DESC").Offset(q.Skip).Limit(q.Limit).
		Find(&out).Error
	return out, err
}

func (dao *ThreadDAO) UpdateComment(ctx context.Context, id uint64, fn func(c *models.Comment) error) (*models.Comment, error) {
	var out *models.Comment
	err := dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Clauses(forUpdate).First(&c, id).Error; err != nil {
			return loadErr(err, "comment", id)
		}
		if err := fn(&c); err != nil {
			if errors.Is(err, ErrSkip) {
				out = &c
				return nil
			}
			return err
		}
		cols := moderationColumns(c.Moderation)
		cols["body"] = c.Body
		cols["body_html"] = c.BodyHTML
		if err := tx.Model(&models.Comment{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}
		out = &c
		return nil
	})
	return out, err
}

func (dao *ThreadDAO) DeleteComment(ctx context.Context, id uint64) (bool, error) {
	// post_id 不会变，先读出来以便按 帖子 -> 评论 的顺序加锁
	var head models.Comment
	if err := dao.db.WithContext(ctx).Select("id", "post_id").First(&head, id).Error; err != nil {
		return false, loadErr(err, "comment", id)
	}

	deleted := false
	err := dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(forUpdate).Select("id").First(&post, head.PostID).Error; err != nil {
			return loadErr(err, "post", head.PostID)
		}
		var c models.Comment
		if err := tx.Clauses(forUpdate).First(&c, id).Error; err != nil {
			return loadErr(err, "comment", id)
		}
		if c.Moderation.Status == cons.StatusDeleted {
			return nil
		}

		if !c.IsReply() {
			var replyIDs []uint64
			if err := tx.Model(&models.Comment{}).Where("parent_id = ?", c.ID).Pluck("id", &replyIDs).Error; err != nil {
				return err
			}
			if len(replyIDs) > 0 {
				if err := tx.Where("target_kind = ? AND target_id IN ?", cons.TargetComment, replyIDs).Delete(&models.Upvote{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", replyIDs).Delete(&models.Comment{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.Comment{}).Where("id = ?", c.ID).UpdateColumns(map[string]any{
				"mod_status":  cons.StatusDeleted,
				"reply_count": 0,
			}).Error; err != nil {
				return err
			}
			// 只减 1，回复从未计入 comment_count
			if err := tx.Model(&models.Post{}).Where("id = ?", c.PostID).
				UpdateColumn("comment_count", gorm.Expr("comment_count - ?", 1)).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&models.Comment{}).Where("id = ?", c.ID).
				UpdateColumn("mod_status", cons.StatusDeleted).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Comment{}).Where("id = ?", *c.ParentID).
				UpdateColumn("reply_count", gorm.Expr("reply_count - ?", 1)).Error; err != nil {
				return err
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// -------------------- 点赞 --------------------

func (dao *ThreadDAO) ToggleUpvote(ctx context.Context, kind cons.TargetKind, id, userID uint64) (int64, bool, error) {
	target := targetModel(kind)
	if target == nil {
		return 0, false, apperr.Validation("unsupported upvote target %q", kind)
	}

	var (
		count   int64
		upvoted bool
	)
	err := dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status, err := lockTarget(tx, kind, id)
		if err != nil {
			return err
		}
		if status == cons.StatusDeleted {
			return apperr.NotFound(string(kind), id)
		}

		var existing models.Upvote
		if err := tx.Where("target_kind = ? AND target_id = ? AND user_id = ?", kind, id, userID).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID != 0 {
			if err := tx.Delete(&models.Upvote{}, existing.ID).Error; err != nil {
				return err
			}
			upvoted = false
		} else {
			if err := tx.Create(&models.Upvote{TargetKind: kind, TargetID: id, UserID: userID}).Error; err != nil {
				return err
			}
			upvoted = true
		}

		if err := tx.Model(&models.Upvote{}).Where("target_kind = ? AND target_id = ?", kind, id).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(target).Where("id = ?", id).UpdateColumn("upvote_count", count).Error
	})
	if err != nil {
		return 0, false, err
	}
	return count, upvoted, nil
}

func (dao *ThreadDAO) UpvotedBy(ctx context.Context, kind cons.TargetKind, ids []uint64, userID uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(ids))
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	var hit []uint64
	if err := dao.db.WithContext(ctx).Model(&models.Upvote{}).
		Where("target_kind = ? AND user_id = ? AND target_id IN ?", kind, userID, ids).
		Pluck("target_id", &hit).Error; err != nil {
		return nil, err
	}
	for _, id := range hit {
		out[id] = true
	}
	return out, nil
}
