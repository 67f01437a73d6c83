package community_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 帖子（Post）相关接口 --------------------

// GinHandleCreatePost 发帖
// @Summary 发帖
// @Description 发帖前同步调用毒性评分，高分内容直接隐藏并通知作者
// @Tags 帖子
// @Accept json
// @Produce json
// @Param req body service.PostInput true "标题和正文（markdown）"
// @Success 200 {object} response.Response{data=service.PostDTO}
// @Failure 400 {object} response.Response "参数错误"
// @Security BearerAuth
// @Router /posts [post]
func (e *CommunityEngine) GinHandleCreatePost(ctx *gin.Context) {
	var req service.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	p, err := e.ThreadService.CreatePost(ctx.Request.Context(), identity(ctx), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(p))
}

// GinHandleListPosts 帖子列表
// @Summary 帖子列表
// @Description 新的在前；普通用户看不到他人被隐藏的内容
// @Tags 帖子
// @Produce json
// @Param author_id query uint64 false "按作者过滤"
// @Param skip query int false "偏移"
// @Param limit query int false "条数(默认20,最大100)"
// @Success 200 {object} response.Response{data=[]service.PostDTO}
// @Router /posts [get]
func (e *CommunityEngine) GinHandleListPosts(ctx *gin.Context) {
	skip, limit := page(ctx)
	authorID, _ := strconv.ParseUint(ctx.DefaultQuery("author_id", "0"), 10, 64)
	items, err := e.ThreadService.ListPosts(ctx.Request.Context(), identity(ctx), service.ListPostsInput{
		AuthorID: authorID,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(items))
}

// GinHandleGetPost 帖子详情
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Success 200 {object} response.Response{data=service.PostDTO}
// @Failure 404 {object} response.Response "不存在或不可见"
// @Router /posts/{id} [get]
func (e *CommunityEngine) GinHandleGetPost(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	p, err := e.ThreadService.GetPost(ctx.Request.Context(), identity(ctx), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(p))
}

// GinHandleEditPost 编辑帖子（仅作者），重新评分
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Param req body service.PostInput true "标题和正文"
// @Success 200 {object} response.Response{data=service.PostDTO}
// @Failure 403 {object} response.Response "不是作者"
// @Security BearerAuth
// @Router /posts/{id} [put]
func (e *CommunityEngine) GinHandleEditPost(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	p, err := e.ThreadService.EditPost(ctx.Request.Context(), identity(ctx), id, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(p))
}

// GinHandleDeletePost 删除帖子（作者或管理员），级联删除评论
// @Summary 删除帖子
// @Tags 帖子
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (e *CommunityEngine) GinHandleDeletePost(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := e.ThreadService.DeletePost(ctx.Request.Context(), identity(ctx), id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleUpvotePost 点赞/取消点赞帖子
// @Summary 点赞帖子（切换）
// @Tags 帖子
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Success 200 {object} response.Response{data=service.UpvoteResult}
// @Security BearerAuth
// @Router /posts/{id}/upvote [post]
func (e *CommunityEngine) GinHandleUpvotePost(ctx *gin.Context) {
	e.toggleUpvote(ctx, cons.TargetPost)
}
