package service

import (
	"time"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/models"
	"github.com/cydxin/community-sdk/toxicity"
)

// 审核状态迁移，纯函数，不碰存储。
//
//	active  --score>=0.8-->  hidden  --escalate-->  under_review
//	   ^                        |                        |
//	   +------- restore --------+------------------------+
//	任意非 deleted --hard delete--> deleted（终态）

// applyVerdict 创建/编辑后按评分更新审核记录。
// newlyHidden 表示本次从非 hidden 进入 hidden，需要通知作者。
func applyVerdict(cur models.Moderation, v toxicity.Verdict) (next models.Moderation, newlyHidden bool) {
	next = cur
	if next.Status == "" {
		next.Status = cons.StatusActive
	}
	next.ToxicityScore = v.Score

	// 人工状态只记录分数
	if next.Status == cons.StatusUnderReview || next.Status == cons.StatusDeleted {
		return next, false
	}

	switch {
	case v.Score >= cons.ToxicityHideThreshold:
		newlyHidden = next.Status != cons.StatusHidden
		next.Status = cons.StatusHidden
		next.AutoFlagged = true
		next.FlagReason = cons.NormalizeFlagReason(v.Attribute)
	case v.Score >= cons.ToxicityRecordThreshold:
		next.Status = cons.StatusActive
		next.AutoFlagged = false
		next.FlagReason = cons.NormalizeFlagReason(v.Attribute)
	default:
		next.Status = cons.StatusActive
		next.AutoFlagged = false
		next.FlagReason = ""
	}
	return next, newlyHidden
}

func stampReviewer(m *models.Moderation, reviewer uint64, now time.Time) {
	r := reviewer
	t := now
	m.ReviewedBy = &r
	m.ReviewedAt = &t
}

// restoreModeration hidden/under_review -> active；active 返回 changed=false
func restoreModeration(cur models.Moderation, reviewer uint64, now time.Time) (models.Moderation, bool) {
	if cur.Status != cons.StatusHidden && cur.Status != cons.StatusUnderReview {
		return cur, false
	}
	next := cur
	next.Status = cons.StatusActive
	next.AutoFlagged = false
	stampReviewer(&next, reviewer, now)
	return next, true
}

// escalateModeration active/hidden -> under_review
func escalateModeration(cur models.Moderation, reviewer uint64, now time.Time) (models.Moderation, bool) {
	if cur.Status != cons.StatusActive && cur.Status != cons.StatusHidden {
		return cur, false
	}
	next := cur
	next.Status = cons.StatusUnderReview
	stampReviewer(&next, reviewer, now)
	return next, true
}
