package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/models"
)

// 内存实现，用于开发和测试。每个 store 一把读写锁，写操作整体持锁，
// 因此级联删除和点赞重算天然是原子的。

func (q ListQuery) match(m models.Moderation, authorID uint64) bool {
	switch {
	case len(q.Statuses) > 0:
		for _, s := range q.Statuses {
			if s == m.Status {
				return true
			}
		}
		return false
	case q.Admin:
		return m.Status != cons.StatusDeleted
	case q.ViewerID != 0:
		if m.Status == cons.StatusActive {
			return true
		}
		return authorID == q.ViewerID && (m.Status == cons.StatusHidden || m.Status == cons.StatusUnderReview)
	default:
		return m.Status == cons.StatusActive
	}
}

func page[T any](items []T, q ListQuery) []T {
	if q.Skip >= len(items) {
		return []T{}
	}
	items = items[q.Skip:]
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items
}

type upvoteKey struct {
	kind cons.TargetKind
	id   uint64
}

// MemoryThreadStore 扁平存放评论，另建 帖子->顶级评论、顶级评论->回复 两个索引
type MemoryThreadStore struct {
	mu       sync.RWMutex
	nextID   uint64
	posts    map[uint64]*models.Post
	comments map[uint64]*models.Comment
	roots    map[uint64][]uint64 // post id -> 顶级评论 id，按创建顺序
	replies  map[uint64][]uint64 // 顶级评论 id -> 回复 id
	upvotes  map[upvoteKey]map[uint64]struct{}
}

func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{
		posts:    make(map[uint64]*models.Post),
		comments: make(map[uint64]*models.Comment),
		roots:    make(map[uint64][]uint64),
		replies:  make(map[uint64][]uint64),
		upvotes:  make(map[upvoteKey]map[uint64]struct{}),
	}
}

func (s *MemoryThreadStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryThreadStore) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p.ID = s.id()
	p.UpvoteCount, p.CommentCount = 0, 0
	if p.Moderation.Status == "" {
		p.Moderation.Status = cons.StatusActive
	}
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *MemoryThreadStore) GetPost(_ context.Context, id uint64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, apperr.NotFound("post", id)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryThreadStore) ListPosts(_ context.Context, q ListQuery) ([]models.Post, error) {
	q = q.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Post
	for _, p := range s.posts {
		if q.AuthorID != 0 && p.AuthorID != q.AuthorID {
			continue
		}
		if q.match(p.Moderation, p.AuthorID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, q), nil
}

func (s *MemoryThreadStore) UpdatePost(_ context.Context, id uint64, fn func(p *models.Post) error) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[id]
	if !ok {
		return nil, apperr.NotFound("post", id)
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		if errors.Is(err, ErrSkip) {
			return &cp, nil
		}
		return nil, err
	}
	stored.Title = cp.Title
	stored.Body = cp.Body
	stored.BodyHTML = cp.BodyHTML
	stored.Moderation = cp.Moderation
	stored.UpdatedAt = time.Now()
	out := *stored
	return &out, nil
}

func (s *MemoryThreadStore) DeletePost(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return false, apperr.NotFound("post", id)
	}
	if p.Moderation.Status == cons.StatusDeleted {
		return false, nil
	}
	for _, rootID := range s.roots[id] {
		s.dropReplies(rootID)
		s.dropComment(rootID)
	}
	delete(s.roots, id)
	delete(s.upvotes, upvoteKey{cons.TargetPost, id})

	p.Moderation.Status = cons.StatusDeleted
	p.CommentCount = 0
	p.UpvoteCount = 0
	p.UpdatedAt = time.Now()
	return true, nil
}

// dropReplies 硬删除某顶级评论下的全部回复，调用方持写锁
func (s *MemoryThreadStore) dropReplies(rootID uint64) {
	for _, rid := range s.replies[rootID] {
		s.dropComment(rid)
	}
	delete(s.replies, rootID)
}

func (s *MemoryThreadStore) dropComment(id uint64) {
	delete(s.comments, id)
	delete(s.upvotes, upvoteKey{cons.TargetComment, id})
}

func (s *MemoryThreadStore) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[c.PostID]
	if !ok || post.Moderation.Status == cons.StatusDeleted {
		return apperr.NotFound("post", c.PostID)
	}
	var parent *models.Comment
	if c.ParentID != nil {
		parent, ok = s.comments[*c.ParentID]
		if !ok || parent.Moderation.Status == cons.StatusDeleted {
			return apperr.NotFound("comment", *c.ParentID)
		}
		if parent.PostID != c.PostID {
			return apperr.Validation("父评论不属于该帖子")
		}
		if parent.IsReply() {
			return apperr.InvalidNesting(parent.ID)
		}
	}

	now := time.Now()
	c.ID = s.id()
	c.ReplyCount, c.UpvoteCount = 0, 0
	if c.Moderation.Status == "" {
		c.Moderation.Status = cons.StatusActive
	}
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	if c.ParentID != nil {
		pid := *c.ParentID
		cp.ParentID = &pid
	}
	s.comments[c.ID] = &cp

	if parent != nil {
		s.replies[parent.ID] = append(s.replies[parent.ID], c.ID)
		parent.ReplyCount++
	} else {
		s.roots[c.PostID] = append(s.roots[c.PostID], c.ID)
		post.CommentCount++
	}
	return nil
}

func copyComment(c *models.Comment) models.Comment {
	cp := *c
	if c.ParentID != nil {
		pid := *c.ParentID
		cp.ParentID = &pid
	}
	return cp
}

func (s *MemoryThreadStore) GetComment(_ context.Context, id uint64) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, apperr.NotFound("comment", id)
	}
	cp := copyComment(c)
	return &cp, nil
}

func (s *MemoryThreadStore) collect(ids []uint64, q ListQuery) []models.Comment {
	out := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		c, ok := s.comments[id]
		if !ok || !q.match(c.Moderation, c.AuthorID) {
			continue
		}
		out = append(out, copyComment(c))
	}
	return page(out, q)
}

func (s *MemoryThreadStore) ListComments(_ context.Context, postID uint64, q ListQuery) ([]models.Comment, error) {
	q = q.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.roots[postID], q), nil
}

func (s *MemoryThreadStore) ListReplies(_ context.Context, parentID uint64, q ListQuery) ([]models.Comment, error) {
	q = q.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.replies[parentID], q), nil
}

func (s *MemoryThreadStore) ListCommentsByStatus(_ context.Context, q ListQuery) ([]models.Comment, error) {
	q = q.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.comments))
	for id := range s.comments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return s.collect(ids, q), nil
}

func (s *MemoryThreadStore) UpdateComment(_ context.Context, id uint64, fn func(c *models.Comment) error) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.comments[id]
	if !ok {
		return nil, apperr.NotFound("comment", id)
	}
	cp := copyComment(stored)
	if err := fn(&cp); err != nil {
		if errors.Is(err, ErrSkip) {
			return &cp, nil
		}
		return nil, err
	}
	stored.Body = cp.Body
	stored.BodyHTML = cp.BodyHTML
	stored.Moderation = cp.Moderation
	stored.UpdatedAt = time.Now()
	out := copyComment(stored)
	return &out, nil
}

func (s *MemoryThreadStore) DeleteComment(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return false, apperr.NotFound("comment", id)
	}
	if c.Moderation.Status == cons.StatusDeleted {
		return false, nil
	}
	c.UpdatedAt = time.Now()
	c.Moderation.Status = cons.StatusDeleted
	if !c.IsReply() {
		s.dropReplies(c.ID)
		c.ReplyCount = 0
		if post, ok := s.posts[c.PostID]; ok {
			post.CommentCount--
		}
		return true, nil
	}
	if parent, ok := s.comments[*c.ParentID]; ok {
		parent.ReplyCount--
	}
	return true, nil
}

func (s *MemoryThreadStore) ToggleUpvote(_ context.Context, kind cons.TargetKind, id, userID uint64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counter *int64
	switch kind {
	case cons.TargetPost:
		p, ok := s.posts[id]
		if !ok || p.Moderation.Status == cons.StatusDeleted {
			return 0, false, apperr.NotFound("post", id)
		}
		counter = &p.UpvoteCount
	case cons.TargetComment:
		c, ok := s.comments[id]
		if !ok || c.Moderation.Status == cons.StatusDeleted {
			return 0, false, apperr.NotFound("comment", id)
		}
		counter = &c.UpvoteCount
	default:
		return 0, false, apperr.Validation("unsupported upvote target %q", kind)
	}

	key := upvoteKey{kind, id}
	set := s.upvotes[key]
	if set == nil {
		set = make(map[uint64]struct{})
		s.upvotes[key] = set
	}
	_, had := set[userID]
	if had {
		delete(set, userID)
	} else {
		set[userID] = struct{}{}
	}
	*counter = int64(len(set))
	return *counter, !had, nil
}

func (s *MemoryThreadStore) UpvotedBy(_ context.Context, kind cons.TargetKind, ids []uint64, userID uint64) (map[uint64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uint64]bool, len(ids))
	if userID == 0 {
		return out, nil
	}
	for _, id := range ids {
		if _, ok := s.upvotes[upvoteKey{kind, id}][userID]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// -------------------- 举报 --------------------

type MemoryReportStore struct {
	mu      sync.RWMutex
	nextID  uint64
	reports []models.Report
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

func (s *MemoryReportStore) Append(_ context.Context, r *models.Report) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var position int64
	for _, e := range s.reports {
		if e.TargetKind != r.TargetKind || e.TargetID != r.TargetID {
			continue
		}
		if e.ReporterID == r.ReporterID {
			return false, 0, nil
		}
		position++
	}
	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = time.Now()
	s.reports = append(s.reports, *r)
	return true, position + 1, nil
}

func (s *MemoryReportStore) ListByTarget(_ context.Context, kind cons.TargetKind, id uint64) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Report
	for _, e := range s.reports {
		if e.TargetKind == kind && e.TargetID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryReportStore) CountByTargets(_ context.Context, kind cons.TargetKind, ids []uint64) (map[uint64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[uint64]int64, len(ids))
	for _, e := range s.reports {
		if e.TargetKind != kind {
			continue
		}
		if _, ok := want[e.TargetID]; ok {
			out[e.TargetID]++
		}
	}
	return out, nil
}

func (s *MemoryReportStore) CountSince(_ context.Context, kind cons.TargetKind, id uint64, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.reports {
		if e.TargetKind == kind && e.TargetID == id && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// -------------------- 通知 --------------------

type MemoryNotificationStore struct {
	mu     sync.RWMutex
	nextID uint64
	items  map[uint64]*models.Notification
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{items: make(map[uint64]*models.Notification)}
}

func (s *MemoryNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n.ID = s.nextID
	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = time.Now()
	cp := *n
	s.items[n.ID] = &cp
	return nil
}

func (s *MemoryNotificationStore) List(_ context.Context, recipientID uint64, unreadOnly bool, skip, limit int) ([]models.Notification, error) {
	q := ListQuery{Skip: skip, Limit: limit}.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, n := range s.items {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, q), nil
}

func (s *MemoryNotificationStore) CountUnread(_ context.Context, recipientID uint64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, it := range s.items {
		if it.RecipientID == recipientID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryNotificationStore) MarkRead(_ context.Context, recipientID uint64, ids []uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var changed int64
	for _, id := range ids {
		it, ok := s.items[id]
		if !ok || it.RecipientID != recipientID || it.IsRead {
			continue
		}
		it.IsRead = true
		it.ReadAt = &now
		changed++
	}
	return changed, nil
}

func (s *MemoryNotificationStore) MarkAllRead(_ context.Context, recipientID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var changed int64
	for _, it := range s.items {
		if it.RecipientID == recipientID && !it.IsRead {
			it.IsRead = true
			it.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryNotificationStore) Delete(_ context.Context, recipientID, id uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok || it.RecipientID != recipientID {
		return 0, nil
	}
	delete(s.items, id)
	return 1, nil
}
