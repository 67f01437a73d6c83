package community_sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/message"
	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/cydxin/community-sdk/toxicity"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

type testServer struct {
	engine *CommunityEngine
	router *gin.Engine
	tokens map[string]string
}

// 正文包含 THREAT 时判定为高危
var keywordClassifier = toxicity.ClassifierFunc(func(_ context.Context, text string) (map[string]float64, error) {
	if strings.Contains(text, "THREAT") {
		return map[string]float64{"toxicity": 0.3, "threat": 0.85}, nil
	}
	return map[string]float64{"toxicity": 0.1}, nil
})

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	e := New(WithRDB(rdb), WithClassifier(keywordClassifier))
	t.Cleanup(e.Close)
	r := gin.New()
	e.RegisterRoutes(r)

	ts := &testServer{engine: e, router: r, tokens: map[string]string{}}
	for name, id := range map[string]service.Identity{
		"alice": {UserID: 1, Role: cons.RoleUser},
		"bob":   {UserID: 2, Role: cons.RoleUser},
		"admin": {UserID: 9, Role: cons.RoleAdmin},
	} {
		tok, err := e.AuthService.Tokens().Issue(context.Background(), id, time.Hour)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		ts.tokens[name] = tok
	}
	return ts
}

type apiResp struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, who, method, path string, body any) (int, apiResp) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[who])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out apiResp
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestHTTP_ThreadFlow(t *testing.T) {
	s := newTestServer(t)

	status, r := s.do(t, "alice", http.MethodPost, "/api/v1/posts", map[string]string{"title": "hello", "body": "**first** post"})
	if status != http.StatusOK || r.Code != response.CodeSuccess {
		t.Fatalf("create post: %d %+v", status, r)
	}
	post := decode[service.PostDTO](t, r.Data)
	if !strings.Contains(post.BodyHTML, "<strong>first</strong>") {
		t.Fatalf("markdown not rendered: %q", post.BodyHTML)
	}

	_, r = s.do(t, "bob", http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), map[string]any{"body": "nice"})
	root := decode[service.CommentDTO](t, r.Data)
	_, r = s.do(t, "alice", http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), map[string]any{"body": "thanks", "parent_id": root.ID})
	reply := decode[service.CommentDTO](t, r.Data)

	// 回复的回复
	status, r = s.do(t, "bob", http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), map[string]any{"body": "x", "parent_id": reply.ID})
	if status != http.StatusBadRequest || r.Code != response.CodeInvalidNesting {
		t.Fatalf("nested reply: %d %+v", status, r)
	}

	// 匿名可读
	status, r = s.do(t, "", http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil)
	if status != http.StatusOK {
		t.Fatalf("anonymous get: %d %+v", status, r)
	}
	// 回复不计入帖子的 comment_count
	if got := decode[service.PostDTO](t, r.Data); got.CommentCount != 1 {
		t.Fatalf("comment_count = %d, want 1", got.CommentCount)
	}
	_, r = s.do(t, "", http.MethodGet, fmt.Sprintf("/api/v1/comments/%d", root.ID), nil)
	if got := decode[service.CommentDTO](t, r.Data); got.ReplyCount != 1 {
		t.Fatalf("reply_count = %d, want 1", got.ReplyCount)
	}
	// 匿名不可写
	status, _ = s.do(t, "", http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/upvote", post.ID), nil)
	if status != http.StatusForbidden {
		t.Fatalf("anonymous upvote: %d", status)
	}

	_, r = s.do(t, "bob", http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/upvote", post.ID), nil)
	if up := decode[service.UpvoteResult](t, r.Data); up.Count != 1 || !up.Upvoted {
		t.Fatalf("upvote: %+v", up)
	}

	_, r = s.do(t, "", http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), nil)
	list := decode[[]service.CommentDTO](t, r.Data)
	if len(list) != 1 || len(list[0].Replies) != 1 || list[0].Replies[0].ID != reply.ID {
		t.Fatalf("comment tree: %+v", list)
	}

	// alice: bob 的评论 + bob 的点赞
	status, r = s.do(t, "alice", http.MethodGet, "/api/v1/notifications", nil)
	if status != http.StatusOK {
		t.Fatalf("notifications: %d %+v", status, r)
	}
	nl := decode[service.NotificationList](t, r.Data)
	if nl.UnreadCount != 2 || len(nl.Items) != 2 || nl.Items[0].Type != cons.NotifyUpvote {
		t.Fatalf("alice notifications: %+v", nl)
	}
	// bob: alice 的回复
	_, r = s.do(t, "bob", http.MethodGet, "/api/v1/notifications?unread_only=true", nil)
	if nl := decode[service.NotificationList](t, r.Data); len(nl.Items) != 1 || nl.Items[0].Type != cons.NotifyReply {
		t.Fatalf("bob notifications: %+v", nl)
	}

	_, r = s.do(t, "alice", http.MethodPost, "/api/v1/notifications/read-all", nil)
	_, r = s.do(t, "alice", http.MethodGet, "/api/v1/notifications/unread-count", nil)
	if got := decode[map[string]int64](t, r.Data); got["unread_count"] != 0 {
		t.Fatalf("unread after read-all: %v", got)
	}

	if status, _ := s.do(t, "", http.MethodGet, "/api/v1/notifications", nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous notifications: %d", status)
	}
}

func TestHTTP_ModerationFlow(t *testing.T) {
	s := newTestServer(t)

	_, r := s.do(t, "alice", http.MethodPost, "/api/v1/posts", map[string]string{"title": "t", "body": "THREAT"})
	post := decode[service.PostDTO](t, r.Data)
	if post.Status != cons.StatusHidden || post.Moderation == nil || post.Moderation.FlagReason != "threat" {
		t.Fatalf("auto moderation: %+v", post)
	}

	path := fmt.Sprintf("/api/v1/posts/%d", post.ID)
	if status, _ := s.do(t, "bob", http.MethodGet, path, nil); status != http.StatusNotFound {
		t.Fatalf("hidden post visible to bob: %d", status)
	}

	// 举报已隐藏内容：只追加
	status, r := s.do(t, "bob", http.MethodPost, path+"/report", map[string]string{"reason": "harassment"})
	if status != http.StatusOK {
		t.Fatalf("report: %d %+v", status, r)
	}
	status, _ = s.do(t, "bob", http.MethodPost, path+"/report", map[string]string{"reason": "boring"})
	if status != http.StatusBadRequest {
		t.Fatalf("bad reason: %d", status)
	}

	if status, _ := s.do(t, "bob", http.MethodGet, "/api/v1/admin/post/flagged", nil); status != http.StatusForbidden {
		t.Fatalf("non-admin flagged list: %d", status)
	}
	_, r = s.do(t, "admin", http.MethodGet, "/api/v1/admin/post/flagged", nil)
	flagged := decode[[]service.FlaggedItem](t, r.Data)
	if len(flagged) != 1 || flagged[0].ID != post.ID || flagged[0].ReportCount != 1 {
		t.Fatalf("flagged: %+v", flagged)
	}

	adminPath := fmt.Sprintf("/api/v1/admin/post/%d", post.ID)
	if status, r := s.do(t, "admin", http.MethodPost, adminPath+"/restore", nil); status != http.StatusOK {
		t.Fatalf("restore: %d %+v", status, r)
	}
	if status, _ := s.do(t, "bob", http.MethodGet, path, nil); status != http.StatusOK {
		t.Fatalf("restored post should be visible: %d", status)
	}

	for i := 0; i < 2; i++ {
		if status, r := s.do(t, "admin", http.MethodPost, adminPath+"/delete", map[string]string{"reason": "rules"}); status != http.StatusOK {
			t.Fatalf("delete #%d: %d %+v", i+1, status, r)
		}
	}
	if status, _ := s.do(t, "alice", http.MethodGet, path, nil); status != http.StatusNotFound {
		t.Fatalf("deleted post visible to author: %d", status)
	}
	if status, _ := s.do(t, "admin", http.MethodPost, adminPath+"/restore", nil); status != http.StatusNotFound {
		t.Fatalf("restore deleted: %d", status)
	}

	_, r = s.do(t, "alice", http.MethodGet, "/api/v1/notifications", nil)
	nl := decode[service.NotificationList](t, r.Data)
	want := []cons.NotificationType{cons.NotifyPostDeleted, cons.NotifyPostRestored, cons.NotifyPostHidden}
	if len(nl.Items) != len(want) {
		t.Fatalf("alice notifications: %+v", nl.Items)
	}
	for i, typ := range want {
		if nl.Items[i].Type != typ {
			t.Fatalf("item %d type = %s, want %s", i, nl.Items[i].Type, typ)
		}
	}

	status, r = s.do(t, "admin", http.MethodPost, "/api/v1/admin/notifications", map[string]any{
		"recipient_ids": []uint64{1, 2},
		"type":          "announcement",
		"payload":       map[string]string{"title": "维护"},
	})
	if status != http.StatusOK {
		t.Fatalf("broadcast: %d %+v", status, r)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
}

// -------------------- WebSocket --------------------

func dialWS(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	if token != "" {
		u += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(u, nil)
}

func readFrame(t *testing.T, c *websocket.Conn) message.Frame {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f message.Frame
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatalf("decode frame %s: %v", b, err)
	}
	return f
}

func unreadOf(t *testing.T, f message.Frame) int64 {
	t.Helper()
	if f.Type != message.FrameUnreadCount {
		t.Fatalf("expected unread_count frame, got %s", f.Type)
	}
	b, _ := json.Marshal(f.Data)
	return decode[message.UnreadCountData](t, b).UnreadCount
}

func TestWS_RoundTrip(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	if _, resp, err := dialWS(t, srv, ""); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token should get 401, resp=%v err=%v", resp, err)
	}

	conn, _, err := dialWS(t, srv, s.tokens["alice"])
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if f := readFrame(t, conn); f.Type != message.FrameConnected {
		t.Fatalf("first frame = %s", f.Type)
	}
	if n := unreadOf(t, readFrame(t, conn)); n != 0 {
		t.Fatalf("initial unread = %d", n)
	}

	_, r := s.do(t, "alice", http.MethodPost, "/api/v1/posts", map[string]string{"title": "t", "body": "b"})
	post := decode[service.PostDTO](t, r.Data)
	s.do(t, "bob", http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), map[string]any{"body": "hi"})

	f := readFrame(t, conn)
	if f.Type != message.FrameNotification {
		t.Fatalf("expected notification frame, got %s", f.Type)
	}
	b, _ := json.Marshal(f.Data)
	n := decode[service.NotificationDTO](t, b)
	if n.Type != cons.NotifyComment || n.SenderID != 2 {
		t.Fatalf("notification = %+v", n)
	}
	if got := unreadOf(t, readFrame(t, conn)); got != 1 {
		t.Fatalf("unread after comment = %d", got)
	}

	if err := conn.WriteJSON(message.Req{Type: message.WsTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if f := readFrame(t, conn); f.Type != message.FramePong {
		t.Fatalf("expected pong, got %s", f.Type)
	}

	if err := conn.WriteJSON(message.Req{Type: message.WsTypeMarkRead, ID: n.ID}); err != nil {
		t.Fatalf("write mark_read: %v", err)
	}
	if got := unreadOf(t, readFrame(t, conn)); got != 0 {
		t.Fatalf("unread after mark_read = %d", got)
	}

	if err := conn.WriteJSON(message.Req{Type: "subscribe", PacketID: "p1"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	f = readFrame(t, conn)
	b, _ = json.Marshal(f.Data)
	if f.Type != message.FrameError || decode[message.ErrorData](t, b).PacketID != "p1" {
		t.Fatalf("expected error frame with packet id, got %s %s", f.Type, b)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for s.engine.WsServer.Online(1) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWS_MultipleConnectionsReceive(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		c, _, err := dialWS(t, srv, s.tokens["bob"])
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer c.Close()
		readFrame(t, c) // connected
		readFrame(t, c) // unread_count
		conns = append(conns, c)
	}
	if got := s.engine.WsServer.Online(2); got != 2 {
		t.Fatalf("online = %d", got)
	}

	_, err := s.engine.NotificationService.Emit(context.Background(), service.EmitRequest{
		RecipientID: 2,
		Payload:     message.FeaturedArtistPayload{Note: "本周精选"},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for i, c := range conns {
		if f := readFrame(t, c); f.Type != message.FrameNotification {
			t.Fatalf("conn %d: got %s", i, f.Type)
		}
	}
}
