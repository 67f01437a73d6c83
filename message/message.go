package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cydxin/community-sdk/cons"
)

// Payload 通知负载，按通知类型一一对应的闭合联合类型。
// 新增类型时必须同时修改 Decode，否则无法从库里还原。
type Payload interface {
	NotificationType() cons.NotificationType
	// Render 生成通知文案，只在创建通知时调用一次
	Render() string
	sealed()
}

const excerptLen = 50

// Excerpt 截取正文摘要（按字符）
func Excerpt(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "…"
}

// CommentPayload 帖子收到顶级评论
type CommentPayload struct {
	PostID    uint64 `json:"post_id"`
	CommentID uint64 `json:"comment_id"`
	PostTitle string `json:"post_title"`
	Excerpt   string `json:"excerpt"`
}

func (CommentPayload) NotificationType() cons.NotificationType { return cons.NotifyComment }
func (p CommentPayload) Render() string {
	return fmt.Sprintf("你的帖子《%s》收到了新评论：%s", p.PostTitle, p.Excerpt)
}
func (CommentPayload) sealed() {}

// ReplyPayload 评论收到回复
type ReplyPayload struct {
	PostID    uint64 `json:"post_id"`
	ParentID  uint64 `json:"parent_id"`
	CommentID uint64 `json:"comment_id"`
	Excerpt   string `json:"excerpt"`
}

func (ReplyPayload) NotificationType() cons.NotificationType { return cons.NotifyReply }
func (p ReplyPayload) Render() string {
	return fmt.Sprintf("有人回复了你的评论：%s", p.Excerpt)
}
func (ReplyPayload) sealed() {}

// UpvotePayload 内容被点赞
type UpvotePayload struct {
	TargetKind  cons.TargetKind `json:"target_kind"`
	TargetID    uint64          `json:"target_id"`
	UpvoteCount int64           `json:"upvote_count"`
}

func (UpvotePayload) NotificationType() cons.NotificationType { return cons.NotifyUpvote }
func (p UpvotePayload) Render() string {
	return fmt.Sprintf("你的%s获得了一个赞（共 %d 个）", kindLabel(p.TargetKind), p.UpvoteCount)
}
func (UpvotePayload) sealed() {}

// ProjectTagPayload 被项目标记
type ProjectTagPayload struct {
	ProjectID    uint64 `json:"project_id"`
	ProjectTitle string `json:"project_title"`
}

func (ProjectTagPayload) NotificationType() cons.NotificationType { return cons.NotifyProjectTag }
func (p ProjectTagPayload) Render() string {
	return fmt.Sprintf("你被标记在项目《%s》中", p.ProjectTitle)
}
func (ProjectTagPayload) sealed() {}

// AnnouncementPayload 站点公告
type AnnouncementPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (AnnouncementPayload) NotificationType() cons.NotificationType { return cons.NotifyAnnouncement }
func (p AnnouncementPayload) Render() string {
	if p.Body == "" {
		return p.Title
	}
	return p.Title + "：" + Excerpt(p.Body)
}
func (AnnouncementPayload) sealed() {}

// FeaturedArtistPayload 被推荐
type FeaturedArtistPayload struct {
	Note string `json:"note"`
}

func (FeaturedArtistPayload) NotificationType() cons.NotificationType {
	return cons.NotifyFeaturedArtist
}
func (p FeaturedArtistPayload) Render() string {
	if p.Note == "" {
		return "你被推荐为精选创作者"
	}
	return "你被推荐为精选创作者：" + p.Note
}
func (FeaturedArtistPayload) sealed() {}

// ModerationPayload 审核类通知，类型由 Kind + Action 决定
type ModerationPayload struct {
	Kind   cons.TargetKind       `json:"kind"`
	Action cons.ModerationAction `json:"action"`
	Reason string                `json:"reason,omitempty"`
	Score  float64               `json:"score,omitempty"`
}

func (p ModerationPayload) NotificationType() cons.NotificationType {
	t, _ := cons.ModerationNotification(p.Kind, p.Action)
	return t
}

func (p ModerationPayload) Render() string {
	label := kindLabel(p.Kind)
	switch p.Action {
	case cons.ActionHidden:
		return fmt.Sprintf("你的%s因疑似违规（%s）已被自动隐藏，等待审核", label, p.Reason)
	case cons.ActionReported:
		return fmt.Sprintf("你的%s被举报：%s", label, p.Reason)
	case cons.ActionRestored:
		return fmt.Sprintf("你的%s已通过审核并恢复显示", label)
	case cons.ActionDeleted:
		if p.Reason == "" {
			return fmt.Sprintf("你的%s已被管理员删除", label)
		}
		return fmt.Sprintf("你的%s已被管理员删除：%s", label, p.Reason)
	}
	return label
}
func (ModerationPayload) sealed() {}

func kindLabel(k cons.TargetKind) string {
	switch k {
	case cons.TargetPost:
		return "帖子"
	case cons.TargetComment:
		return "评论"
	case cons.TargetProject:
		return "项目"
	}
	return string(k)
}

// Decode 从库里的 JSON 还原负载
func Decode(t cons.NotificationType, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case cons.NotifyComment:
		var v CommentPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case cons.NotifyReply:
		var v ReplyPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case cons.NotifyUpvote:
		var v UpvotePayload
		err = json.Unmarshal(raw, &v)
		p = v
	case cons.NotifyProjectTag:
		var v ProjectTagPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case cons.NotifyAnnouncement:
		var v AnnouncementPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case cons.NotifyFeaturedArtist:
		var v FeaturedArtistPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		if !t.IsModeration() {
			return nil, fmt.Errorf("unknown notification type %q", t)
		}
		var v ModerationPayload
		err = json.Unmarshal(raw, &v)
		p = v
	}
	if err != nil {
		return nil, err
	}
	if p.NotificationType() != t {
		return nil, fmt.Errorf("payload does not match notification type %q", t)
	}
	return p, nil
}
