package cons

// NotificationType 通知类型（闭集）
type NotificationType string

// 社交类通知
const (
	NotifyComment        NotificationType = "comment"         // 帖子被评论
	NotifyUpvote         NotificationType = "upvote"          // 被点赞
	NotifyReply          NotificationType = "reply"           // 评论被回复
	NotifyProjectTag     NotificationType = "project_tag"     // 被项目标记
	NotifyAnnouncement   NotificationType = "announcement"    // 站点公告
	NotifyFeaturedArtist NotificationType = "featured_artist" // 被推荐
)

// 审核类通知，{kind}_{action}
const (
	NotifyPostHidden   NotificationType = "post_hidden"
	NotifyPostReported NotificationType = "post_reported"
	NotifyPostRestored NotificationType = "post_restored"
	NotifyPostDeleted  NotificationType = "post_deleted"

	NotifyCommentHidden   NotificationType = "comment_hidden"
	NotifyCommentReported NotificationType = "comment_reported"
	NotifyCommentRestored NotificationType = "comment_restored"
	NotifyCommentDeleted  NotificationType = "comment_deleted"

	NotifyProjectHidden   NotificationType = "project_hidden"
	NotifyProjectReported NotificationType = "project_reported"
	NotifyProjectRestored NotificationType = "project_restored"
	NotifyProjectDeleted  NotificationType = "project_deleted"
)

// ModerationAction 审核动作，和 TargetKind 一起决定审核通知类型
type ModerationAction string

const (
	ActionHidden   ModerationAction = "hidden"
	ActionReported ModerationAction = "reported"
	ActionRestored ModerationAction = "restored"
	ActionDeleted  ModerationAction = "deleted"
)

var moderationTypes = map[TargetKind]map[ModerationAction]NotificationType{
	TargetPost: {
		ActionHidden: NotifyPostHidden, ActionReported: NotifyPostReported,
		ActionRestored: NotifyPostRestored, ActionDeleted: NotifyPostDeleted,
	},
	TargetComment: {
		ActionHidden: NotifyCommentHidden, ActionReported: NotifyCommentReported,
		ActionRestored: NotifyCommentRestored, ActionDeleted: NotifyCommentDeleted,
	},
	TargetProject: {
		ActionHidden: NotifyProjectHidden, ActionReported: NotifyProjectReported,
		ActionRestored: NotifyProjectRestored, ActionDeleted: NotifyProjectDeleted,
	},
}

// ModerationNotification 由目标类型和动作得到通知类型
func ModerationNotification(kind TargetKind, action ModerationAction) (NotificationType, bool) {
	t, ok := moderationTypes[kind][action]
	return t, ok
}

// IsModeration 是否审核类通知
func (t NotificationType) IsModeration() bool {
	for _, m := range moderationTypes {
		for _, v := range m {
			if v == t {
				return true
			}
		}
	}
	return false
}

// Valid 是否在闭集内
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyComment, NotifyUpvote, NotifyReply, NotifyProjectTag, NotifyAnnouncement, NotifyFeaturedArtist:
		return true
	}
	return t.IsModeration()
}
