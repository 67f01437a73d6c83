package community_sdk

import (
	"encoding/json"
	"net/http"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 审核（管理员）相关接口 --------------------
// 路由需要挂在 RequireAdmin 之后；service 层也会再校验一次角色

// GinHandleListFlagged 待审核列表（hidden + under_review）
// @Summary 待审核列表
// @Tags 审核
// @Produce json
// @Param kind path string true "post / comment / project"
// @Param skip query int false "偏移"
// @Param limit query int false "条数(默认20,最大100)"
// @Success 200 {object} response.Response{data=[]service.FlaggedItem}
// @Failure 403 {object} response.Response "非管理员"
// @Security BearerAuth
// @Router /admin/{kind}/flagged [get]
func (e *CommunityEngine) GinHandleListFlagged(ctx *gin.Context) {
	kind, ok := pathKind(ctx)
	if !ok {
		return
	}
	skip, limit := page(ctx)
	items, err := e.ModerationService.ListFlagged(ctx.Request.Context(), identity(ctx), kind, skip, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(items))
}

// GinHandleRestore 恢复显示
// @Summary 恢复内容
// @Description 状态改为 active，清除自动标记并通知作者；已是 active 视为成功
// @Tags 审核
// @Produce json
// @Param kind path string true "post / comment / project"
// @Param id path uint64 true "目标ID"
// @Success 200 {object} response.Response{data=service.Target}
// @Failure 404 {object} response.Response "不存在或已删除"
// @Security BearerAuth
// @Router /admin/{kind}/{id}/restore [post]
func (e *CommunityEngine) GinHandleRestore(ctx *gin.Context) {
	kind, ok := pathKind(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	t, err := e.ModerationService.Restore(ctx.Request.Context(), identity(ctx), kind, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(t))
}

type HardDeleteReq struct {
	Reason string `json:"reason,omitempty"`
}

// GinHandleHardDelete 管理员删除
// @Summary 删除内容（管理员）
// @Description 墓碑化并级联；第二次删除视为成功
// @Tags 审核
// @Accept json
// @Produce json
// @Param kind path string true "post / comment / project"
// @Param id path uint64 true "目标ID"
// @Param req body HardDeleteReq false "删除原因（写进通知）"
// @Success 200 {object} response.Response{data=service.Target}
// @Security BearerAuth
// @Router /admin/{kind}/{id}/delete [post]
func (e *CommunityEngine) GinHandleHardDelete(ctx *gin.Context) {
	kind, ok := pathKind(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req HardDeleteReq
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err.Error())
			return
		}
	}
	t, err := e.ModerationService.HardDelete(ctx.Request.Context(), identity(ctx), kind, id, req.Reason)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(t))
}

// GinHandleEscalate 转人工审核
// @Summary 转人工审核
// @Tags 审核
// @Produce json
// @Param kind path string true "post / comment / project"
// @Param id path uint64 true "目标ID"
// @Success 200 {object} response.Response{data=service.Target}
// @Security BearerAuth
// @Router /admin/{kind}/{id}/escalate [post]
func (e *CommunityEngine) GinHandleEscalate(ctx *gin.Context) {
	kind, ok := pathKind(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	t, err := e.ModerationService.Escalate(ctx.Request.Context(), identity(ctx), kind, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(t))
}

// GinHandleMarkReviewed 记录审核人（不改状态）
// @Summary 标记已审核
// @Tags 审核
// @Produce json
// @Param kind path string true "post / comment / project"
// @Param id path uint64 true "目标ID"
// @Success 200 {object} response.Response{data=service.Target}
// @Security BearerAuth
// @Router /admin/{kind}/{id}/review [post]
func (e *CommunityEngine) GinHandleMarkReviewed(ctx *gin.Context) {
	kind, ok := pathKind(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	t, err := e.ModerationService.MarkReviewed(ctx.Request.Context(), identity(ctx), kind, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(t))
}

// GinHandleListReports 某条内容的举报记录（插入顺序）
// @Summary 举报记录
// @Tags 审核
// @Produce json
// @Param kind path string true "post / comment / project"
// @Param id path uint64 true "目标ID"
// @Success 200 {object} response.Response{data=[]models.Report}
// @Security BearerAuth
// @Router /admin/{kind}/{id}/reports [get]
func (e *CommunityEngine) GinHandleListReports(ctx *gin.Context) {
	kind, ok := pathKind(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	items, err := e.ModerationService.ListReports(ctx.Request.Context(), identity(ctx), kind, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(items))
}

type BroadcastReq struct {
	RecipientIDs []uint64              `json:"recipient_ids" binding:"required"`
	Type         cons.NotificationType `json:"type" binding:"required" example:"announcement"`
	TargetType   cons.TargetKind       `json:"target_type,omitempty"`
	TargetID     uint64                `json:"target_id,omitempty"`
	Payload      json.RawMessage       `json:"payload" binding:"required" swaggertype:"object"`
}

// GinHandleBroadcast 管理员发送通知（公告/推荐等），负载必须和类型匹配
// @Summary 发送通知（管理员）
// @Tags 审核
// @Accept json
// @Produce json
// @Param req body BroadcastReq true "接收人 + 类型 + 负载"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.ids"
// @Security BearerAuth
// @Router /admin/notifications [post]
func (e *CommunityEngine) GinHandleBroadcast(ctx *gin.Context) {
	var req BroadcastReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	ids, err := e.NotificationService.EmitRaw(ctx.Request.Context(), identity(ctx).UserID, req.RecipientIDs, req.Type, req.TargetType, req.TargetID, req.Payload)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"ids": ids}))
}
