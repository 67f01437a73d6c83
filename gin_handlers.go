package community_sdk

import (
	"net/http"

	"github.com/cydxin/community-sdk/middleware"
	"github.com/cydxin/community-sdk/response"
	"github.com/gin-gonic/gin"
)

/*
	RegisterRoutes 注册全部内置接口到 /api/v1，另外挂 /healthz。
	读接口允许匿名（只能看到 active 内容），写接口在 service 层要求登录；
	通知和 WS 必须登录；/admin 需要管理员角色。

	handler 按模块拆在：
- handler_post.go
- handler_comment.go
- handler_report.go
- handler_moderation.go
- handler_notification.go
- handler_ws.go
*/
func (e *CommunityEngine) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, response.Success(map[string]int{"ws_users": e.WsServer.Users()}))
	})

	api := r.Group("/api/v1")
	api.GET("/ws", e.GinHandleWS)

	open := api.Group("", e.GinAuthMiddleware(&middleware.AuthOptions{Optional: true}))
	{
		open.GET("/posts", e.GinHandleListPosts)
		open.POST("/posts", e.GinHandleCreatePost)
		open.GET("/posts/:id", e.GinHandleGetPost)
		open.PUT("/posts/:id", e.GinHandleEditPost)
		open.DELETE("/posts/:id", e.GinHandleDeletePost)
		open.POST("/posts/:id/upvote", e.GinHandleUpvotePost)
		open.POST("/posts/:id/report", e.GinHandleReportPost)
		open.GET("/posts/:id/comments", e.GinHandleListComments)
		open.POST("/posts/:id/comments", e.GinHandleCreateComment)

		open.GET("/comments/:id", e.GinHandleGetComment)
		open.PUT("/comments/:id", e.GinHandleEditComment)
		open.DELETE("/comments/:id", e.GinHandleDeleteComment)
		open.GET("/comments/:id/replies", e.GinHandleListReplies)
		open.POST("/comments/:id/upvote", e.GinHandleUpvoteComment)
		open.POST("/comments/:id/report", e.GinHandleReportComment)
	}

	notifyAPI := api.Group("/notifications", e.GinAuthMiddleware(nil))
	{
		notifyAPI.GET("", e.GinHandleListNotifications)
		notifyAPI.GET("/unread-count", e.GinHandleUnreadCount)
		notifyAPI.POST("/read", e.GinHandleMarkNotificationsRead)
		notifyAPI.POST("/read-all", e.GinHandleMarkAllNotificationsRead)
		notifyAPI.DELETE("/:id", e.GinHandleDeleteNotification)
	}

	adminAPI := api.Group("/admin", e.GinAuthMiddleware(nil), middleware.RequireAdmin())
	{
		adminAPI.POST("/notifications", e.GinHandleBroadcast)
		adminAPI.GET("/:kind/flagged", e.GinHandleListFlagged)
		adminAPI.GET("/:kind/:id/reports", e.GinHandleListReports)
		adminAPI.POST("/:kind/:id/restore", e.GinHandleRestore)
		adminAPI.POST("/:kind/:id/delete", e.GinHandleHardDelete)
		adminAPI.POST("/:kind/:id/escalate", e.GinHandleEscalate)
		adminAPI.POST("/:kind/:id/review", e.GinHandleMarkReviewed)
	}
}
