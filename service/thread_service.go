package service

import (
	"context"
	"time"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/message"
	"github.com/cydxin/community-sdk/models"
	"github.com/cydxin/community-sdk/repository"
)

// DefaultReplyPreview 评论列表里每条顶级评论附带的回复数
const DefaultReplyPreview = 3

// ThreadService 帖子 / 评论 / 点赞
type ThreadService struct {
	*Service
}

func NewThreadService(s *Service) *ThreadService {
	return &ThreadService{Service: s}
}

// ModerationDTO 只返回给作者和管理员
type ModerationDTO struct {
	ToxicityScore float64    `json:"toxicity_score"`
	AutoFlagged   bool       `json:"auto_flagged"`
	FlagReason    string     `json:"flag_reason,omitempty"`
	ReviewedBy    *uint64    `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

type PostDTO struct {
	ID           uint64                `json:"id"`
	AuthorID     uint64                `json:"author_id"`
	Title        string                `json:"title"`
	Body         string                `json:"body"`
	BodyHTML     string                `json:"body_html"`
	UpvoteCount  int64                 `json:"upvote_count"`
	CommentCount int64                 `json:"comment_count"`
	Status       cons.ModerationStatus `json:"status"`
	Warning      bool                  `json:"warning"`
	Upvoted      bool                  `json:"upvoted"`
	Moderation   *ModerationDTO        `json:"moderation,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type CommentDTO struct {
	ID          uint64                `json:"id"`
	PostID      uint64                `json:"post_id"`
	AuthorID    uint64                `json:"author_id"`
	ParentID    *uint64               `json:"parent_id,omitempty"`
	Body        string                `json:"body"`
	BodyHTML    string                `json:"body_html"`
	ReplyCount  int64                 `json:"reply_count"`
	UpvoteCount int64                 `json:"upvote_count"`
	Status      cons.ModerationStatus `json:"status"`
	Warning     bool                  `json:"warning"`
	Upvoted     bool                  `json:"upvoted"`
	Moderation  *ModerationDTO        `json:"moderation,omitempty"`
	Replies     []CommentDTO          `json:"replies,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

type UpvoteResult struct {
	Count   int64 `json:"upvote_count"`
	Upvoted bool  `json:"upvoted"`
}

func moderationFor(m models.Moderation, authorID uint64, who Identity) *ModerationDTO {
	if !who.IsAdmin() && (who.Anonymous() || who.UserID != authorID) {
		return nil
	}
	return &ModerationDTO{
		ToxicityScore: m.ToxicityScore,
		AutoFlagged:   m.AutoFlagged,
		FlagReason:    m.FlagReason,
		ReviewedBy:    m.ReviewedBy,
		ReviewedAt:    m.ReviewedAt,
	}
}

func toPostDTO(p *models.Post, who Identity, upvoted bool) PostDTO {
	return PostDTO{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Title:        p.Title,
		Body:         p.Body,
		BodyHTML:     p.BodyHTML,
		UpvoteCount:  p.UpvoteCount,
		CommentCount: p.CommentCount,
		Status:       p.Moderation.Status,
		Warning:      p.Moderation.Warning(),
		Upvoted:      upvoted,
		Moderation:   moderationFor(p.Moderation, p.AuthorID, who),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toCommentDTO(c *models.Comment, who Identity, upvoted bool) CommentDTO {
	return CommentDTO{
		ID:          c.ID,
		PostID:      c.PostID,
		AuthorID:    c.AuthorID,
		ParentID:    c.ParentID,
		Body:        c.Body,
		BodyHTML:    c.BodyHTML,
		ReplyCount:  c.ReplyCount,
		UpvoteCount: c.UpvoteCount,
		Status:      c.Moderation.Status,
		Warning:     c.Moderation.Warning(),
		Upvoted:     upvoted,
		Moderation:  moderationFor(c.Moderation, c.AuthorID, who),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func canSee(m models.Moderation, authorID uint64, who Identity) bool {
	return m.VisibleTo(who.UserID, authorID, who.IsAdmin())
}

func listQuery(who Identity, skip, limit int) repository.ListQuery {
	return repository.ListQuery{ViewerID: who.UserID, Admin: who.IsAdmin(), Skip: skip, Limit: limit}
}

func requireLogin(who Identity) error {
	if who.Anonymous() {
		return apperr.Forbidden("请先登录")
	}
	return nil
}

// -------------------- 帖子 --------------------

type PostInput struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

func (in PostInput) clean() (PostInput, error) {
	var err error
	if in.Title, err = checkText("title", in.Title, PostTitleMaxLen); err != nil {
		return in, err
	}
	if in.Body, err = checkText("body", in.Body, PostBodyMaxLen); err != nil {
		return in, err
	}
	return in, nil
}

func (s *ThreadService) visiblePost(ctx context.Context, who Identity, id uint64) (*models.Post, error) {
	p, err := s.Threads.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(p.Moderation, p.AuthorID, who) {
		return nil, apperr.NotFound("post", id)
	}
	return p, nil
}

// CreatePost 落库前先评分，内容不会以未审核状态出现
func (s *ThreadService) CreatePost(ctx context.Context, who Identity, in PostInput) (*PostDTO, error) {
	if err := requireLogin(who); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}

	v := s.Oracle.Score(ctx, in.Title+"\n\n"+in.Body)
	mod, hidden := applyVerdict(models.Moderation{}, v)
	p := &models.Post{
		AuthorID:   who.UserID,
		Title:      in.Title,
		Body:       in.Body,
		BodyHTML:   RenderBody(in.Body),
		Moderation: mod,
	}
	if err := s.Threads.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	s.Moderation.AfterAutoModeration(ctx, postToTarget(p), hidden)

	dto := toPostDTO(p, who, false)
	return &dto, nil
}

// EditPost 只有作者可编辑；编辑后重新评分
func (s *ThreadService) EditPost(ctx context.Context, who Identity, id uint64, in PostInput) (*PostDTO, error) {
	if err := requireLogin(who); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, who, id); err != nil {
		return nil, err
	}

	v := s.Oracle.Score(ctx, in.Title+"\n\n"+in.Body)
	var hidden bool
	p, err := s.Threads.UpdatePost(ctx, id, func(p *models.Post) error {
		if p.Moderation.Status == cons.StatusDeleted {
			return apperr.NotFound("post", id)
		}
		if p.AuthorID != who.UserID {
			return apperr.Forbidden("只能编辑自己的帖子")
		}
		p.Title = in.Title
		p.Body = in.Body
		p.BodyHTML = RenderBody(in.Body)
		p.Moderation, hidden = applyVerdict(p.Moderation, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Moderation.AfterAutoModeration(ctx, postToTarget(p), hidden)

	up, _ := s.Threads.UpvotedBy(ctx, cons.TargetPost, []uint64{p.ID}, who.UserID)
	dto := toPostDTO(p, who, up[p.ID])
	return &dto, nil
}

// DeletePost 作者删除自己的帖子；管理员删除他人帖子走审核硬删除（会通知作者）。
// 已删除视为成功。
func (s *ThreadService) DeletePost(ctx context.Context, who Identity, id uint64) error {
	if err := requireLogin(who); err != nil {
		return err
	}
	p, err := s.Threads.GetPost(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case p.AuthorID == who.UserID:
		_, err = s.Threads.DeletePost(ctx, id)
		return err
	case who.IsAdmin():
		_, err = s.Moderation.HardDelete(ctx, who, cons.TargetPost, id, "")
		return err
	case !canSee(p.Moderation, p.AuthorID, who):
		return apperr.NotFound("post", id)
	default:
		return apperr.Forbidden("只能删除自己的帖子")
	}
}

func (s *ThreadService) GetPost(ctx context.Context, who Identity, id uint64) (*PostDTO, error) {
	p, err := s.visiblePost(ctx, who, id)
	if err != nil {
		return nil, err
	}
	up, err := s.Threads.UpvotedBy(ctx, cons.TargetPost, []uint64{id}, who.UserID)
	if err != nil {
		return nil, err
	}
	dto := toPostDTO(p, who, up[id])
	return &dto, nil
}

type ListPostsInput struct {
	AuthorID uint64
	Skip     int
	Limit    int
}

func (s *ThreadService) ListPosts(ctx context.Context, who Identity, in ListPostsInput) ([]PostDTO, error) {
	q := listQuery(who, in.Skip, in.Limit)
	q.AuthorID = in.AuthorID
	posts, err := s.Threads.ListPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	up, err := s.Threads.UpvotedBy(ctx, cons.TargetPost, ids, who.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]PostDTO, 0, len(posts))
	for i := range posts {
		out = append(out, toPostDTO(&posts[i], who, up[posts[i].ID]))
	}
	return out, nil
}

// -------------------- 评论 --------------------

type CommentInput struct {
	Body     string  `json:"body" binding:"required"`
	ParentID *uint64 `json:"parent_id,omitempty"`
}

func (s *ThreadService) visibleComment(ctx context.Context, who Identity, id uint64) (*models.Comment, error) {
	c, err := s.Threads.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(c.Moderation, c.AuthorID, who) {
		return nil, apperr.NotFound("comment", id)
	}
	return c, nil
}

// CreateComment parentID 为空是顶级评论；回复只能挂在顶级评论下
func (s *ThreadService) CreateComment(ctx context.Context, who Identity, postID uint64, in CommentInput) (*CommentDTO, error) {
	if err := requireLogin(who); err != nil {
		return nil, err
	}
	body, err := checkText("body", in.Body, CommentBodyMaxLen)
	if err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, who, postID)
	if err != nil {
		return nil, err
	}
	var parent *models.Comment
	if in.ParentID != nil {
		if parent, err = s.visibleComment(ctx, who, *in.ParentID); err != nil {
			return nil, err
		}
	}

	v := s.Oracle.Score(ctx, body)
	mod, hidden := applyVerdict(models.Moderation{}, v)
	c := &models.Comment{
		PostID:     postID,
		AuthorID:   who.UserID,
		ParentID:   in.ParentID,
		Body:       body,
		BodyHTML:   RenderBody(body),
		Moderation: mod,
	}
	if err := s.Threads.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	s.Moderation.AfterAutoModeration(ctx, commentToTarget(c), hidden)

	// 被自动隐藏的内容不打扰其他人
	if c.Moderation.Status == cons.StatusActive {
		s.notifyNewComment(ctx, who, post, parent, c)
	}

	dto := toCommentDTO(c, who, false)
	return &dto, nil
}

func (s *ThreadService) notifyNewComment(ctx context.Context, who Identity, post *models.Post, parent *models.Comment, c *models.Comment) {
	if parent != nil {
		if parent.AuthorID == who.UserID {
			return
		}
		s.Notify.emitBestEffort(ctx, EmitRequest{
			RecipientID: parent.AuthorID,
			SenderID:    who.UserID,
			TargetType:  cons.TargetComment,
			TargetID:    c.ID,
			Payload: message.ReplyPayload{
				PostID:    post.ID,
				ParentID:  parent.ID,
				CommentID: c.ID,
				Excerpt:   message.Excerpt(c.Body),
			},
		})
		return
	}
	if post.AuthorID == who.UserID {
		return
	}
	s.Notify.emitBestEffort(ctx, EmitRequest{
		RecipientID: post.AuthorID,
		SenderID:    who.UserID,
		TargetType:  cons.TargetComment,
		TargetID:    c.ID,
		Payload: message.CommentPayload{
			PostID:    post.ID,
			CommentID: c.ID,
			PostTitle: post.Title,
			Excerpt:   message.Excerpt(c.Body),
		},
	})
}

func (s *ThreadService) EditComment(ctx context.Context, who Identity, id uint64, body string) (*CommentDTO, error) {
	if err := requireLogin(who); err != nil {
		return nil, err
	}
	body, err := checkText("body", body, CommentBodyMaxLen)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleComment(ctx, who, id); err != nil {
		return nil, err
	}

	v := s.Oracle.Score(ctx, body)
	var hidden bool
	c, err := s.Threads.UpdateComment(ctx, id, func(c *models.Comment) error {
		if c.Moderation.Status == cons.StatusDeleted {
			return apperr.NotFound("comment", id)
		}
		if c.AuthorID != who.UserID {
			return apperr.Forbidden("只能编辑自己的评论")
		}
		c.Body = body
		c.BodyHTML = RenderBody(body)
		c.Moderation, hidden = applyVerdict(c.Moderation, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Moderation.AfterAutoModeration(ctx, commentToTarget(c), hidden)

	up, _ := s.Threads.UpvotedBy(ctx, cons.TargetComment, []uint64{c.ID}, who.UserID)
	dto := toCommentDTO(c, who, up[c.ID])
	return &dto, nil
}

// DeleteComment 规则同 DeletePost
func (s *ThreadService) DeleteComment(ctx context.Context, who Identity, id uint64) error {
	if err := requireLogin(who); err != nil {
		return err
	}
	c, err := s.Threads.GetComment(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case c.AuthorID == who.UserID:
		_, err = s.Threads.DeleteComment(ctx, id)
		return err
	case who.IsAdmin():
		_, err = s.Moderation.HardDelete(ctx, who, cons.TargetComment, id, "")
		return err
	case !canSee(c.Moderation, c.AuthorID, who):
		return apperr.NotFound("comment", id)
	default:
		return apperr.Forbidden("只能删除自己的评论")
	}
}

func (s *ThreadService) GetComment(ctx context.Context, who Identity, id uint64) (*CommentDTO, error) {
	c, err := s.visibleComment(ctx, who, id)
	if err != nil {
		return nil, err
	}
	up, err := s.Threads.UpvotedBy(ctx, cons.TargetComment, []uint64{id}, who.UserID)
	if err != nil {
		return nil, err
	}
	dto := toCommentDTO(c, who, up[id])
	return &dto, nil
}

type ListCommentsInput struct {
	Skip    int
	Limit   int
	Preview int // 每条顶级评论附带的回复数，<0 不附带
}

// ListComments 顶级评论按时间正序，每条附带前几条回复
func (s *ThreadService) ListComments(ctx context.Context, who Identity, postID uint64, in ListCommentsInput) ([]CommentDTO, error) {
	if _, err := s.visiblePost(ctx, who, postID); err != nil {
		return nil, err
	}
	roots, err := s.Threads.ListComments(ctx, postID, listQuery(who, in.Skip, in.Limit))
	if err != nil {
		return nil, err
	}

	preview := in.Preview
	if preview == 0 {
		preview = DefaultReplyPreview
	}
	replies := make(map[uint64][]models.Comment, len(roots))
	ids := make([]uint64, 0, len(roots))
	for _, c := range roots {
		ids = append(ids, c.ID)
		if preview < 0 || c.ReplyCount == 0 {
			continue
		}
		rs, err := s.Threads.ListReplies(ctx, c.ID, listQuery(who, 0, preview))
		if err != nil {
			return nil, err
		}
		replies[c.ID] = rs
		for _, r := range rs {
			ids = append(ids, r.ID)
		}
	}
	up, err := s.Threads.UpvotedBy(ctx, cons.TargetComment, ids, who.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]CommentDTO, 0, len(roots))
	for i := range roots {
		dto := toCommentDTO(&roots[i], who, up[roots[i].ID])
		for j := range replies[roots[i].ID] {
			r := &replies[roots[i].ID][j]
			dto.Replies = append(dto.Replies, toCommentDTO(r, who, up[r.ID]))
		}
		out = append(out, dto)
	}
	return out, nil
}

// ListReplies 分页拉取某条顶级评论的回复
func (s *ThreadService) ListReplies(ctx context.Context, who Identity, commentID uint64, skip, limit int) ([]CommentDTO, error) {
	if _, err := s.visibleComment(ctx, who, commentID); err != nil {
		return nil, err
	}
	rs, err := s.Threads.ListReplies(ctx, commentID, listQuery(who, skip, limit))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	up, err := s.Threads.UpvotedBy(ctx, cons.TargetComment, ids, who.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]CommentDTO, 0, len(rs))
	for i := range rs {
		out = append(out, toCommentDTO(&rs[i], who, up[rs[i].ID]))
	}
	return out, nil
}

// -------------------- 点赞 --------------------

// ToggleUpvote 点赞/取消点赞；新增点赞时通知作者
func (s *ThreadService) ToggleUpvote(ctx context.Context, who Identity, kind cons.TargetKind, id uint64) (*UpvoteResult, error) {
	if err := requireLogin(who); err != nil {
		return nil, err
	}
	var authorID uint64
	switch kind {
	case cons.TargetPost:
		p, err := s.visiblePost(ctx, who, id)
		if err != nil {
			return nil, err
		}
		authorID = p.AuthorID
	case cons.TargetComment:
		c, err := s.visibleComment(ctx, who, id)
		if err != nil {
			return nil, err
		}
		authorID = c.AuthorID
	default:
		return nil, apperr.Validation("unsupported upvote target %q", kind)
	}

	count, upvoted, err := s.Threads.ToggleUpvote(ctx, kind, id, who.UserID)
	if err != nil {
		return nil, err
	}
	if upvoted && authorID != who.UserID {
		s.Notify.emitBestEffort(ctx, EmitRequest{
			RecipientID: authorID,
			SenderID:    who.UserID,
			TargetType:  kind,
			TargetID:    id,
			Payload:     message.UpvotePayload{TargetKind: kind, TargetID: id, UpvoteCount: count},
		})
	}
	return &UpvoteResult{Count: count, Upvoted: upvoted}, nil
}
