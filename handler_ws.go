package community_sdk

import (
	"errors"
	"net/http"

	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServeWS 处理 WebSocket 请求：先鉴权（Bearer 或 ?token=），失败直接 401 不升级
func (e *CommunityEngine) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, _, err := e.AuthService.AuthenticateRequest(r.Context(), r)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, service.ErrMissingToken) {
			msg = "missing token"
		}
		e.log.Debug("ws auth failed", zap.Error(err))
		response.Error(response.CodeTokenInvalid, msg).WriteJSONWithStatus(w, http.StatusUnauthorized)
		return
	}
	e.WsServer.ServeWS(w, r, id.UserID)
}

// GinHandleWS WebSocket 入口
// @Summary WebSocket 推送通道
// @Description 下行帧：connected / notification / unread_count / pong / error；上行：ping / mark_read / mark_all_read
// @Tags 通知
// @Param token query string false "浏览器无法带 header 时使用"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} response.Response "鉴权失败"
// @Security QueryToken
// @Router /ws [get]
func (e *CommunityEngine) GinHandleWS(ctx *gin.Context) {
	e.ServeWS(ctx.Writer, ctx.Request)
}
