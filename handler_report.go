package community_sdk

import (
	"net/http"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 举报（Report）相关接口 --------------------

type ReportReq struct {
	Reason  string `json:"reason" binding:"required" example:"spam"` // spam/harassment/hate_speech/violence/misinformation/other
	Details string `json:"details,omitempty"`
}

// GinHandleReportPost 举报帖子
// @Summary 举报帖子
// @Description 同一用户对同一内容只记一次，重复举报返回 duplicate=true
// @Tags 举报
// @Accept json
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Param req body ReportReq true "举报原因"
// @Success 200 {object} response.Response{data=service.ReportResult}
// @Security BearerAuth
// @Router /posts/{id}/report [post]
func (e *CommunityEngine) GinHandleReportPost(ctx *gin.Context) {
	e.report(ctx, cons.TargetPost)
}

// GinHandleReportComment 举报评论
// @Summary 举报评论
// @Tags 举报
// @Accept json
// @Produce json
// @Param id path uint64 true "评论ID"
// @Param req body ReportReq true "举报原因"
// @Success 200 {object} response.Response{data=service.ReportResult}
// @Security BearerAuth
// @Router /comments/{id}/report [post]
func (e *CommunityEngine) GinHandleReportComment(ctx *gin.Context) {
	e.report(ctx, cons.TargetComment)
}

func (e *CommunityEngine) report(ctx *gin.Context, kind cons.TargetKind) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req ReportReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	res, err := e.ReportService.Report(ctx.Request.Context(), identity(ctx), service.ReportInput{
		Kind:    kind,
		ID:      id,
		Reason:  req.Reason,
		Details: req.Details,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}
