package community_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/middleware"
	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
)

/*
	HTTP处理 更建议自己写HTTP的处理，然后调用对应的service，而不是获得这里的闭包来调用
	这里的 handler 只做参数解析 + 错误映射，业务规则都在 service 里
*/

func identity(ctx *gin.Context) service.Identity {
	return middleware.IdentityFrom(ctx)
}

// writeError 按错误分类返回 HTTP 状态码 + 业务码
func writeError(ctx *gin.Context, err error) {
	status, body := response.FromError(err)
	ctx.JSON(status, body)
}

func badRequest(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, msg))
}

// pathID 解析路径参数里的 id
func pathID(ctx *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

// page 读取 skip / limit，非法值按 0 处理（由存储层套默认值和上限）
func page(ctx *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(ctx.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "0"))
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

func pathKind(ctx *gin.Context) (cons.TargetKind, bool) {
	k := cons.TargetKind(ctx.Param("kind"))
	if !k.Valid() {
		badRequest(ctx, "invalid kind")
		return "", false
	}
	return k, true
}
