package response

import (
	"encoding/json"
	"net/http"

	"github.com/cydxin/community-sdk/apperr"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code int         `json:"code" example:"0"`                    // 业务状态码
	Msg  string      `json:"msg" example:"success"`               // 提示消息
	Data interface{} `json:"data,omitempty" swaggertype:"object"` // 响应数据
}

// 业务状态码定义
// 使用说明：
// - 鉴权/参数/权限/不存在/冲突：对应 HTTP 状态码 + 业务状态码
// - 内部错误：HTTP 200 + CodeInternalError
const (
	CodeSuccess        = 0     // 成功
	CodeParamError     = 10001 // 参数错误
	CodeTokenInvalid   = 10004 // Token 无效/过期
	CodePermissionDeny = 10005 // 权限不足
	CodeNotFound       = 10006 // 内容不存在或不可见
	CodeInvalidNesting = 10007 // 只能回复顶层评论
	CodeConflict       = 10008 // 状态冲突
	CodeInternalError  = 99999 // 内部错误
)

// Success 成功响应
func Success(data interface{}, args ...string) *Response {
	msg := "success"
	for _, arg := range args {
		msg = arg
	}
	return &Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	}
}

// Error 错误响应
func Error(code int, msg string) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
	}
}

// FromError 把服务层错误映射为 HTTP 状态码 + 响应体
func FromError(err error) (int, *Response) {
	if err == nil {
		return http.StatusOK, Success(nil)
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, Error(CodeParamError, err.Error())
	case apperr.KindInvalidNesting:
		return http.StatusBadRequest, Error(CodeInvalidNesting, err.Error())
	case apperr.KindForbidden:
		return http.StatusForbidden, Error(CodePermissionDeny, err.Error())
	case apperr.KindNotFound:
		return http.StatusNotFound, Error(CodeNotFound, err.Error())
	case apperr.KindConflict:
		return http.StatusConflict, Error(CodeConflict, err.Error())
	}
	zap.L().Error("internal error", zap.Error(err))
	return http.StatusOK, Error(CodeInternalError, "internal error")
}

// WriteJSON 写入 JSON 响应（默认 HTTP 200）
func (r *Response) WriteJSON(w http.ResponseWriter) {
	r.WriteJSONWithStatus(w, http.StatusOK)
}

// WriteJSONWithStatus 写入 JSON 响应（指定 HTTP 状态码）
// 用于中间件层面的鉴权失败等场景（如 401）
func (r *Response) WriteJSONWithStatus(w http.ResponseWriter, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(r); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}
