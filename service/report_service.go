package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/models"
	"go.uber.org/zap"
)

// ReportService 用户举报
type ReportService struct {
	*Service
}

func NewReportService(s *Service) *ReportService {
	return &ReportService{Service: s}
}

type ReportInput struct {
	Kind    cons.TargetKind
	ID      uint64
	Reason  string
	Details string
}

type ReportResult struct {
	ReportID  uint64 `json:"report_id,omitempty"`
	Position  int64  `json:"position,omitempty"`  // 该目标第几条举报
	Duplicate bool   `json:"duplicate,omitempty"` // 同一用户重复举报，未追加
}

// Report 追加举报。
// 同一用户对同一目标只记一次，重复举报返回成功但不追加、不通知。
// 目标处于 active 且这是上次审核以来的第一条举报时通知作者；hidden/under_review 只追加。
func (s *ReportService) Report(ctx context.Context, who Identity, in ReportInput) (*ReportResult, error) {
	if who.Anonymous() {
		return nil, apperr.Forbidden("请先登录")
	}
	if !cons.ValidReportReason(in.Reason) {
		return nil, apperr.Validation("invalid report reason %q", in.Reason)
	}
	details := strings.TrimSpace(in.Details)
	if utf8.RuneCountInString(details) > cons.ReportDetailsMaxLen {
		return nil, apperr.Validation("details 不能超过 %d 个字符", cons.ReportDetailsMaxLen)
	}

	h, err := s.Moderation.handler(in.Kind)
	if err != nil {
		return nil, err
	}
	t, err := h.Load(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if t.Moderation.Status == cons.StatusDeleted {
		return nil, apperr.NotFound(string(in.Kind), in.ID)
	}
	if t.AuthorID == who.UserID {
		return nil, apperr.Validation("不能举报自己的内容")
	}

	r := &models.Report{
		TargetKind: in.Kind,
		TargetID:   in.ID,
		ReporterID: who.UserID,
		Reason:     in.Reason,
		Details:    details,
	}
	created, position, err := s.Reports.Append(ctx, r)
	if err != nil {
		return nil, err
	}
	if !created {
		return &ReportResult{Duplicate: true}, nil
	}

	s.logger().Info("content reported",
		zap.String("kind", string(in.Kind)),
		zap.Uint64("id", in.ID),
		zap.Uint64("reporter_id", who.UserID),
		zap.String("reason", in.Reason),
		zap.Int64("position", position))

	if t.Moderation.Status == cons.StatusActive && s.firstSinceReview(ctx, t, position) {
		s.Moderation.notifyAuthor(ctx, t, who.UserID, cons.ActionReported, in.Reason)
	}
	return &ReportResult{ReportID: r.ID, Position: position}, nil
}

func (s *ReportService) firstSinceReview(ctx context.Context, t *Target, position int64) bool {
	if position == 1 {
		return true
	}
	if t.Moderation.ReviewedAt == nil {
		return false
	}
	n, err := s.Reports.CountSince(ctx, t.Kind, t.ID, *t.Moderation.ReviewedAt)
	if err != nil {
		s.logger().Warn("count reports since review failed", zap.Error(err))
		return false
	}
	return n == 1
}
