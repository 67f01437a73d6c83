package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/message"
	"github.com/cydxin/community-sdk/repository"
	"github.com/cydxin/community-sdk/toxicity"
)

// wsRecorder 记录推送给每个用户的帧
type wsRecorder struct {
	mu     sync.Mutex
	frames map[uint64][]message.Frame
}

func newWsRecorder() *wsRecorder {
	return &wsRecorder{frames: make(map[uint64][]message.Frame)}
}

func (r *wsRecorder) send(userID uint64, b []byte) {
	var f message.Frame
	_ = json.Unmarshal(b, &f)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[userID] = append(r.frames[userID], f)
}

func (r *wsRecorder) types(userID uint64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames[userID]))
	for _, f := range r.frames[userID] {
		out = append(out, f.Type)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []NotificationEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

// scores 固定返回的分类器
func scores(m map[string]float64) toxicity.Classifier {
	return toxicity.ClassifierFunc(func(context.Context, string) (map[string]float64, error) {
		return m, nil
	})
}

type testEnv struct {
	base    *Service
	threads *ThreadService
	reports *ReportService
	ws      *wsRecorder
	pub     *fakePublisher
}

func newTestEnv(t *testing.T, c toxicity.Classifier) *testEnv {
	t.Helper()
	ws := newWsRecorder()
	pub := &fakePublisher{}
	base := &Service{
		Threads:       repository.NewMemoryThreadStore(),
		Reports:       repository.NewMemoryReportStore(),
		Notifications: repository.NewMemoryNotificationStore(),
		WsNotifier:    ws.send,
		Oracle:        toxicity.NewAdapter(c),
		Publisher:     pub,
	}
	threads, reports := NewServices(base)
	return &testEnv{base: base, threads: threads, reports: reports, ws: ws, pub: pub}
}

var (
	alice = Identity{UserID: 1, Role: cons.RoleUser}
	bob   = Identity{UserID: 2, Role: cons.RoleUser}
	carol = Identity{UserID: 3, Role: cons.RoleUser}
	admin = Identity{UserID: 99, Role: cons.RoleAdmin}
	anon  = Identity{}
)

func (e *testEnv) notifications(t *testing.T, who Identity) *NotificationList {
	t.Helper()
	l, err := e.base.Notify.List(context.Background(), who.UserID, false, 0, 100)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return l
}

func (e *testEnv) mustPost(t *testing.T, who Identity, title, body string) *PostDTO {
	t.Helper()
	p, err := e.threads.CreatePost(context.Background(), who, PostInput{Title: title, Body: body})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p
}

func (e *testEnv) mustComment(t *testing.T, who Identity, postID uint64, parent *uint64, body string) *CommentDTO {
	t.Helper()
	c, err := e.threads.CreateComment(context.Background(), who, postID, CommentInput{Body: body, ParentID: parent})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	return c
}
