// Package community_sdk 提供社区讨论区核心能力：帖子/评论、点赞、举报与审核、站内通知与实时推送
// @title Community SDK API
// @version 1.0
// @description 帖子/评论、举报审核与通知推送接口
// @description
// @description ## 业务状态码说明
// @description | Code | 说明 |
// @description |------|------|
// @description | 0 | 成功 |
// @description | 10001 | 参数错误 |
// @description | 10004 | Token 无效 |
// @description | 10005 | 权限不足 |
// @description | 10006 | 内容不存在或不可见 |
// @description | 10007 | 只能回复顶层评论 |
// @description | 10008 | 状态冲突 |
// @description | 99999 | 内部错误 |
// @description
// @description ## HTTP 状态码说明
// @description - **200**: 请求成功（内部错误同样返回 200 + 99999）
// @description - **400**: 参数错误
// @description - **401**: 认证失败（未登录/Token 无效）
// @description - **403**: 权限不足
// @description - **404**: 内容不存在或不可见
// @description - **409**: 状态冲突
//
// @contact.name API Support
// @contact.url https://github.com/cydxin/community-sdk/issues
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 格式：Bearer <token>
//
// @securityDefinitions.apikey QueryToken
// @in query
// @name token
// @description 用于 WebSocket 等无法传 header 的场景
package community_sdk
