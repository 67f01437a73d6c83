package community_sdk

import (
	"net/http"

	"github.com/cydxin/community-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 通知（Notification）相关接口 --------------------
// 路由需要挂在 GinAuthMiddleware（非 Optional）之后

// GinHandleListNotifications 拉取通知（id 倒序）
// @Summary 拉取通知
// @Tags 通知
// @Produce json
// @Param unread_only query bool false "只看未读"
// @Param skip query int false "偏移"
// @Param limit query int false "条数(默认20,最大100)"
// @Success 200 {object} response.Response{data=service.NotificationList} "data.items + data.unread_count"
// @Security BearerAuth
// @Router /notifications [get]
func (e *CommunityEngine) GinHandleListNotifications(ctx *gin.Context) {
	skip, limit := page(ctx)
	unreadOnly := ctx.DefaultQuery("unread_only", "false") == "true"
	l, err := e.NotificationService.List(ctx.Request.Context(), identity(ctx).UserID, unreadOnly, skip, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(l))
}

// GinHandleUnreadCount 未读数
// @Summary 未读数
// @Tags 通知
// @Produce json
// @Success 200 {object} response.Response{data=message.UnreadCountData}
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (e *CommunityEngine) GinHandleUnreadCount(ctx *gin.Context) {
	n, err := e.NotificationService.UnreadCount(ctx.Request.Context(), identity(ctx).UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]int64{"unread_count": n}))
}

type MarkNotificationsReadReq struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

// GinHandleMarkNotificationsRead 标记通知已读（幂等）
// @Summary 标记通知已读
// @Tags 通知
// @Accept json
// @Produce json
// @Param req body MarkNotificationsReadReq true "请求参数"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.changed"
// @Security BearerAuth
// @Router /notifications/read [post]
func (e *CommunityEngine) GinHandleMarkNotificationsRead(ctx *gin.Context) {
	var req MarkNotificationsReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	n, err := e.NotificationService.MarkRead(ctx.Request.Context(), identity(ctx).UserID, req.IDs)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]int64{"changed": n}))
}

// GinHandleMarkAllNotificationsRead 全部已读
// @Summary 全部已读
// @Tags 通知
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.changed"
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (e *CommunityEngine) GinHandleMarkAllNotificationsRead(ctx *gin.Context) {
	n, err := e.NotificationService.MarkAllRead(ctx.Request.Context(), identity(ctx).UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]int64{"changed": n}))
}

// GinHandleDeleteNotification 删除自己的通知，不存在视为成功
// @Summary 删除通知
// @Tags 通知
// @Produce json
// @Param id path uint64 true "通知ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (e *CommunityEngine) GinHandleDeleteNotification(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := e.NotificationService.Delete(ctx.Request.Context(), identity(ctx).UserID, id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}
