package community_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/response"
	"github.com/cydxin/community-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 评论（Comment）相关接口 --------------------

// GinHandleCreateComment 评论帖子或回复顶级评论
// @Summary 发表评论
// @Description parent_id 为空是顶级评论；回复只能挂在顶级评论下，回复的回复返回 400
// @Tags 评论
// @Accept json
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Param req body service.CommentInput true "评论内容"
// @Success 200 {object} response.Response{data=service.CommentDTO}
// @Failure 400 {object} response.Response "参数错误 / 10007 不能回复回复"
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (e *CommunityEngine) GinHandleCreateComment(ctx *gin.Context) {
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CommentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	c, err := e.ThreadService.CreateComment(ctx.Request.Context(), identity(ctx), postID, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(c))
}

// GinHandleListComments 顶级评论列表（附带前几条回复）
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Param id path uint64 true "帖子ID"
// @Param skip query int false "偏移"
// @Param limit query int false "条数(默认20,最大100)"
// @Param preview query int false "每条附带的回复数(默认3, -1 不附带)"
// @Success 200 {object} response.Response{data=[]service.CommentDTO}
// @Router /posts/{id}/comments [get]
func (e *CommunityEngine) GinHandleListComments(ctx *gin.Context) {
	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	skip, limit := page(ctx)
	preview, err := strconv.Atoi(ctx.DefaultQuery("preview", "0"))
	if err != nil {
		badRequest(ctx, "invalid preview")
		return
	}
	items, err := e.ThreadService.ListComments(ctx.Request.Context(), identity(ctx), postID, service.ListCommentsInput{
		Skip:    skip,
		Limit:   limit,
		Preview: preview,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(items))
}

// GinHandleGetComment 评论详情
// @Summary 评论详情
// @Tags 评论
// @Produce json
// @Param id path uint64 true "评论ID"
// @Success 200 {object} response.Response{data=service.CommentDTO}
// @Router /comments/{id} [get]
func (e *CommunityEngine) GinHandleGetComment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	c, err := e.ThreadService.GetComment(ctx.Request.Context(), identity(ctx), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(c))
}

// GinHandleListReplies 某条顶级评论的回复（时间正序）
// @Summary 回复列表
// @Tags 评论
// @Produce json
// @Param id path uint64 true "评论ID"
// @Param skip query int false "偏移"
// @Param limit query int false "条数(默认20,最大100)"
// @Success 200 {object} response.Response{data=[]service.CommentDTO}
// @Router /comments/{id}/replies [get]
func (e *CommunityEngine) GinHandleListReplies(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	skip, limit := page(ctx)
	items, err := e.ThreadService.ListReplies(ctx.Request.Context(), identity(ctx), id, skip, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(items))
}

type EditCommentReq struct {
	Body string `json:"body" binding:"required"`
}

// GinHandleEditComment 编辑评论（仅作者）
// @Summary 编辑评论
// @Tags 评论
// @Accept json
// @Produce json
// @Param id path uint64 true "评论ID"
// @Param req body EditCommentReq true "新内容"
// @Success 200 {object} response.Response{data=service.CommentDTO}
// @Security BearerAuth
// @Router /comments/{id} [put]
func (e *CommunityEngine) GinHandleEditComment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req EditCommentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	c, err := e.ThreadService.EditComment(ctx.Request.Context(), identity(ctx), id, req.Body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(c))
}

// GinHandleDeleteComment 删除评论（作者或管理员），顶级评论连同回复一起删除
// @Summary 删除评论
// @Tags 评论
// @Produce json
// @Param id path uint64 true "评论ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (e *CommunityEngine) GinHandleDeleteComment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := e.ThreadService.DeleteComment(ctx.Request.Context(), identity(ctx), id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleUpvoteComment 点赞/取消点赞评论
// @Summary 点赞评论（切换）
// @Tags 评论
// @Produce json
// @Param id path uint64 true "评论ID"
// @Success 200 {object} response.Response{data=service.UpvoteResult}
// @Security BearerAuth
// @Router /comments/{id}/upvote [post]
func (e *CommunityEngine) GinHandleUpvoteComment(ctx *gin.Context) {
	e.toggleUpvote(ctx, cons.TargetComment)
}

func (e *CommunityEngine) toggleUpvote(ctx *gin.Context, kind cons.TargetKind) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	res, err := e.ThreadService.ToggleUpvote(ctx.Request.Context(), identity(ctx), kind, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}
