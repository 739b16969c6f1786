package controllers

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/miniblog/models"
	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/utils"
)

const (
	postsCacheName   = "posts"
	postsCachePrefix = "cache:posts:"
)

// postsListKey names the list entry of one cache generation. A list read
// before a write lands under the old generation and is never served after it.
func postsListKey(gen int64) string {
	return postsCachePrefix + "list:" + strconv.FormatInt(gen, 10)
}

// PostController manages posts, comments and likes.
type PostController struct {
	store    repository.Store
	cacheTTL time.Duration
}

// NewPostController creates a new PostController instance.
func NewPostController(store repository.Store, cacheTTL time.Duration) *PostController {
	return &PostController{store: store, cacheTTL: cacheTTL}
}

// ListPosts returns every post newest first with its comments.
func (p *PostController) ListPosts(ctx *gin.Context) {
	key := postsListKey(utils.CacheGeneration(ctx.Request.Context(), postsCacheName))
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), key); ok {
		ctx.Data(200, "application/json; charset=utf-8", b)
		return
	}

	posts, err := p.store.ListPosts(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	b, err := json.Marshal(posts)
	if err != nil {
		utils.Fail(ctx, models.NewInternalError(err))
		return
	}
	utils.CacheSetBytes(ctx.Request.Context(), key, b, p.cacheTTL)
	ctx.Data(200, "application/json; charset=utf-8", b)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	post, err := p.store.GetPost(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreatePost stores a new post. The author is taken as given.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	in := repository.PostInput{
		Title:    firstNonEmpty(req.Title),
		Body:     req.body(),
		Author:   firstNonEmpty(req.Author),
		Category: firstNonEmpty(req.Category),
	}
	if err := requireFields([2]string{"title", in.Title}, [2]string{"content", in.Body}, [2]string{"author", in.Author}); err != nil {
		utils.Fail(ctx, err)
		return
	}

	post, err := p.store.CreatePost(ctx.Request.Context(), in)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost edits title, body and category. Only the post's author may edit it.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	var req postRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	in := repository.PostInput{
		Title:    firstNonEmpty(req.Title),
		Body:     req.body(),
		Author:   firstNonEmpty(req.Author),
		Category: firstNonEmpty(req.Category),
	}
	if err := requireFields([2]string{"title", in.Title}, [2]string{"content", in.Body}, [2]string{"author", in.Author}); err != nil {
		utils.Fail(ctx, err)
		return
	}
	if err := p.requireOwner(ctx, id, in.Author); err != nil {
		utils.Fail(ctx, err)
		return
	}

	post, err := p.store.UpdatePost(ctx.Request.Context(), id, in)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post with its comments and likes. The author comes
// from the JSON body or the "author" query parameter.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	var req ownerRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	author := firstNonEmpty(req.Author, ctx.Query("author"))
	if err := requireFields([2]string{"author", author}); err != nil {
		utils.Fail(ctx, err)
		return
	}
	if err := p.requireOwner(ctx, id, author); err != nil {
		utils.Fail(ctx, err)
		return
	}

	if err := p.store.DeletePost(ctx.Request.Context(), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidate(ctx.Request.Context())
	utils.Success(ctx, nil)
}

// CreateComment appends a comment to an existing post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req commentRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	in := repository.CommentInput{
		PostID: req.postID(),
		Author: firstNonEmpty(req.Author),
		Text:   req.text(),
	}
	if err := requireFields([2]string{"postId", idString(in.PostID)}, [2]string{"comment", in.Text}, [2]string{"author", in.Author}); err != nil {
		utils.Fail(ctx, err)
		return
	}

	comment, err := p.store.CreateComment(ctx.Request.Context(), in)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"comment": comment})
}

// LikePost records one like per user and post.
func (p *PostController) LikePost(ctx *gin.Context) {
	var req likeRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	postID := uint64(req.PostID)
	if postID == 0 {
		if id, err := parseID(ctx); err == nil {
			postID = id
		}
	}
	user := req.user()
	if err := requireFields([2]string{"postId", idString(postID)}, [2]string{"user", user}); err != nil {
		utils.Fail(ctx, err)
		return
	}

	likes, err := p.store.LikePost(ctx.Request.Context(), postID, user)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"likes": likes})
}

func (p *PostController) requireOwner(ctx *gin.Context, id uint64, author string) error {
	post, err := p.store.GetPost(ctx.Request.Context(), id)
	if err != nil {
		return err
	}
	if post.Author != author {
		return models.NewForbiddenError("only the author can change this post")
	}
	return nil
}

// invalidate runs after a committed write, so a client hanging up must not
// cancel it.
func (p *PostController) invalidate(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	utils.BumpGeneration(ctx, postsCacheName)
	utils.InvalidateByPrefix(ctx, postsCachePrefix)
}
