package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/toxicity"
)

// byKeyword 文本包含 "THREAT" 时给出高分，包含 "RUDE" 时给出中等分数
func byKeyword() toxicity.Classifier {
	return toxicity.ClassifierFunc(func(_ context.Context, text string) (map[string]float64, error) {
		switch {
		case strings.Contains(text, "THREAT"):
			return map[string]float64{"toxicity": 0.3, "threat": 0.85}, nil
		case strings.Contains(text, "RUDE"):
			return map[string]float64{"insult": 0.6}, nil
		}
		return map[string]float64{"toxicity": 0.05}, nil
	})
}

func TestCreatePost_AutoHideOnHighScore(t *testing.T) {
	e := newTestEnv(t, byKeyword())
	ctx := context.Background()

	p := e.mustPost(t, alice, "hello", "a THREAT here")
	if p.Status != cons.StatusHidden || !p.Warning {
		t.Fatalf("expected hidden with warning, got %+v", p)
	}
	if p.Moderation == nil || p.Moderation.ToxicityScore != 0.85 || p.Moderation.FlagReason != cons.FlagThreat || !p.Moderation.AutoFlagged {
		t.Fatalf("unexpected moderation %+v", p.Moderation)
	}

	// 作者收到自己发给自己的 post_hidden
	l := e.notifications(t, alice)
	if len(l.Items) != 1 || l.Items[0].Type != cons.NotifyPostHidden || l.Items[0].SenderID != alice.UserID {
		t.Fatalf("expected one self-directed post_hidden, got %+v", l.Items)
	}

	if _, err := e.threads.GetPost(ctx, bob, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("other users should not see hidden post, got %v", err)
	}
	if _, err := e.threads.GetPost(ctx, anon, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("anonymous should not see hidden post, got %v", err)
	}
	got, err := e.threads.GetPost(ctx, admin, p.ID)
	if err != nil || !got.Warning {
		t.Fatalf("admin should see hidden post with warning, got %+v err=%v", got, err)
	}
	list, _ := e.threads.ListPosts(ctx, bob, ListPostsInput{})
	if len(list) != 0 {
		t.Fatalf("hidden post leaked into list: %+v", list)
	}
}

func TestCreatePost_MidScoreRecordedButActive(t *testing.T) {
	e := newTestEnv(t, byKeyword())
	p := e.mustPost(t, alice, "hi", "RUDE words")
	if p.Status != cons.StatusActive || p.Moderation.AutoFlagged {
		t.Fatalf("expected active, got %+v", p)
	}
	if p.Moderation.ToxicityScore != 0.6 || p.Moderation.FlagReason != cons.FlagInsult {
		t.Fatalf("score/reason not recorded: %+v", p.Moderation)
	}
	if l := e.notifications(t, alice); len(l.Items) != 0 {
		t.Fatalf("no notification expected, got %+v", l.Items)
	}
}

func TestCreatePost_FailOpen(t *testing.T) {
	e := newTestEnv(t, toxicity.ClassifierFunc(func(context.Context, string) (map[string]float64, error) {
		return nil, errors.New("oracle down")
	}))
	p := e.mustPost(t, alice, "hi", "a THREAT here")
	if p.Status != cons.StatusActive || p.Moderation.ToxicityScore != 0 {
		t.Fatalf("expected fail-open active/0, got %+v", p)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	if _, err := e.threads.CreatePost(ctx, alice, PostInput{Title: "   ", Body: "x"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("blank title should fail, got %v", err)
	}
	long := strings.Repeat("字", PostTitleMaxLen+1)
	if _, err := e.threads.CreatePost(ctx, alice, PostInput{Title: long, Body: "x"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("long title should fail, got %v", err)
	}
	if _, err := e.threads.CreatePost(ctx, anon, PostInput{Title: "t", Body: "x"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("anonymous should be forbidden, got %v", err)
	}
}

func TestCreatePost_RendersSanitizedHTML(t *testing.T) {
	e := newTestEnv(t, nil)
	p := e.mustPost(t, alice, "md", "**bold** <script>alert(1)</script>")
	if !strings.Contains(p.BodyHTML, "<strong>bold</strong>") {
		t.Fatalf("markdown not rendered: %q", p.BodyHTML)
	}
	if strings.Contains(p.BodyHTML, "<script>") {
		t.Fatalf("script not stripped: %q", p.BodyHTML)
	}
}

func TestEditPost_Transitions(t *testing.T) {
	e := newTestEnv(t, byKeyword())
	ctx := context.Background()

	p := e.mustPost(t, alice, "t", "fine")
	if _, err := e.threads.EditPost(ctx, bob, p.ID, PostInput{Title: "t", Body: "mine now"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-author edit should be forbidden, got %v", err)
	}

	// active -> hidden
	got, err := e.threads.EditPost(ctx, alice, p.ID, PostInput{Title: "t", Body: "THREAT"})
	if err != nil || got.Status != cons.StatusHidden {
		t.Fatalf("expected hidden after edit, got %+v err=%v", got, err)
	}
	// hidden -> hidden 不重复通知
	if _, err := e.threads.EditPost(ctx, alice, p.ID, PostInput{Title: "t", Body: "THREAT again"}); err != nil {
		t.Fatalf("EditPost: %v", err)
	}
	if l := e.notifications(t, alice); len(l.Items) != 1 {
		t.Fatalf("expected exactly one hidden notification, got %d", len(l.Items))
	}
	// hidden -> active
	got, _ = e.threads.EditPost(ctx, alice, p.ID, PostInput{Title: "t", Body: "sorry"})
	if got.Status != cons.StatusActive || got.Moderation.AutoFlagged || got.Moderation.FlagReason != "" {
		t.Fatalf("expected clean active, got %+v", got)
	}

	// under_review 只记录分数
	if _, err := e.base.Moderation.Escalate(ctx, admin, cons.TargetPost, p.ID); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	got, _ = e.threads.EditPost(ctx, alice, p.ID, PostInput{Title: "t", Body: "THREAT"})
	if got.Status != cons.StatusUnderReview || got.Moderation.ToxicityScore != 0.85 {
		t.Fatalf("under_review should stay with new score, got %+v", got)
	}

	// deleted 不可编辑
	if err := e.threads.DeletePost(ctx, alice, p.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := e.threads.EditPost(ctx, alice, p.ID, PostInput{Title: "t", Body: "x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("editing deleted post should be not found, got %v", err)
	}
}

func TestCreateComment_NestingAndCounters(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	p := e.mustPost(t, alice, "t", "b")
	top := e.mustComment(t, bob, p.ID, nil, "top")
	reply := e.mustComment(t, carol, p.ID, &top.ID, "reply")

	_, err := e.threads.CreateComment(ctx, alice, p.ID, CommentInput{Body: "nested", ParentID: &reply.ID})
	if !errors.Is(err, apperr.ErrInvalidNesting) {
		t.Fatalf("expected invalid nesting, got %v", err)
	}

	post, _ := e.threads.GetPost(ctx, alice, p.ID)
	if post.CommentCount != 1 {
		t.Fatalf("comment_count = %d, want 1", post.CommentCount)
	}
	parent, _ := e.threads.GetComment(ctx, alice, top.ID)
	if parent.ReplyCount != 1 {
		t.Fatalf("reply_count = %d, want 1", parent.ReplyCount)
	}

	other := e.mustPost(t, alice, "other", "b")
	if _, err := e.threads.CreateComment(ctx, bob, other.ID, CommentInput{Body: "x", ParentID: &top.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("parent from another post should fail validation, got %v", err)
	}
}

func TestCreateComment_Notifications(t *testing.T) {
	e := newTestEnv(t, nil)

	p := e.mustPost(t, alice, "my post", "b")
	e.mustComment(t, alice, p.ID, nil, "own comment") // 自己评论自己不通知
	top := e.mustComment(t, bob, p.ID, nil, "nice post")
	e.mustComment(t, carol, p.ID, &top.ID, "agree")

	al := e.notifications(t, alice)
	if len(al.Items) != 1 || al.Items[0].Type != cons.NotifyComment || al.Items[0].SenderID != bob.UserID {
		t.Fatalf("alice: unexpected %+v", al.Items)
	}
	if !strings.Contains(al.Items[0].Message, "my post") {
		t.Fatalf("message not rendered from payload: %q", al.Items[0].Message)
	}
	bl := e.notifications(t, bob)
	if len(bl.Items) != 1 || bl.Items[0].Type != cons.NotifyReply {
		t.Fatalf("bob: unexpected %+v", bl.Items)
	}
}

func TestListComments_WithReplyPreview(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	p := e.mustPost(t, alice, "t", "b")
	top := e.mustComment(t, bob, p.ID, nil, "top")
	for i := 0; i < 5; i++ {
		e.mustComment(t, carol, p.ID, &top.ID, "r")
	}
	e.mustComment(t, carol, p.ID, nil, "second top")

	list, err := e.threads.ListComments(ctx, alice, p.ID, ListCommentsInput{})
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(list) != 2 || list[0].ID != top.ID {
		t.Fatalf("expected 2 top-level comments oldest first, got %+v", list)
	}
	if len(list[0].Replies) != DefaultReplyPreview || list[0].ReplyCount != 5 {
		t.Fatalf("preview=%d reply_count=%d", len(list[0].Replies), list[0].ReplyCount)
	}

	page, err := e.threads.ListReplies(ctx, alice, top.ID, 3, 10)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListReplies skip=3: len=%d err=%v", len(page), err)
	}
}

func TestToggleUpvote_ConcurrentUsers(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	p := e.mustPost(t, alice, "t", "b")

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			if _, err := e.threads.ToggleUpvote(ctx, Identity{UserID: uid}, cons.TargetPost, p.ID); err != nil {
				t.Errorf("ToggleUpvote: %v", err)
			}
		}(uint64(1000 + i))
	}
	wg.Wait()

	got, _ := e.threads.GetPost(ctx, Identity{UserID: 1000}, p.ID)
	if got.UpvoteCount != n || !got.Upvoted {
		t.Fatalf("upvote_count=%d upvoted=%v", got.UpvoteCount, got.Upvoted)
	}
	if l := e.notifications(t, alice); l.UnreadCount != n {
		t.Fatalf("expected %d upvote notifications, got %d", n, l.UnreadCount)
	}

	res, err := e.threads.ToggleUpvote(ctx, Identity{UserID: 1000}, cons.TargetPost, p.ID)
	if err != nil || res.Upvoted || res.Count != n-1 {
		t.Fatalf("toggle off: %+v err=%v", res, err)
	}
}

func TestDeleteComment_Permissions(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	p := e.mustPost(t, alice, "t", "b")
	c := e.mustComment(t, bob, p.ID, nil, "x")
	if err := e.threads.DeleteComment(ctx, carol, c.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := e.threads.DeleteComment(ctx, bob, c.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := e.threads.DeleteComment(ctx, bob, c.ID); err != nil {
		t.Fatalf("second delete should succeed, got %v", err)
	}
	if _, err := e.threads.GetComment(ctx, bob, c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted comment visible to author, got %v", err)
	}
	post, _ := e.threads.GetPost(ctx, alice, p.ID)
	if post.CommentCount != 0 {
		t.Fatalf("comment_count = %d, want 0", post.CommentCount)
	}
}
