package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/metrics"
)

type PostService struct {
	posts    domain.PostRepository
	comments domain.CommentRepository
	logger   logger.Logger
	now      func() time.Time
}

func NewPostService(posts domain.PostRepository, comments domain.CommentRepository, logger logger.Logger) domain.PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *PostService) CreatePost(ctx context.Context, authorID string, input domain.PostInput) (_ *domain.Post, err error) {
	defer observe("create", "post", time.Now(), &err)

	content := strings.TrimSpace(input.Content)
	var invalid []domain.FieldError
	invalid = append(invalid, validateContent(content)...)
	invalid = append(invalid, validateMedia(input.MediaURLs)...)

	visibility := input.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	if !visibility.Valid() {
		invalid = append(invalid, domain.FieldError{Field: "visibility", Message: "must be PUBLIC, FOLLOWERS or PRIVATE"})
	}

	status := input.Status
	if status == "" {
		status = domain.PostPublished
	}
	if status != domain.PostDraft && status != domain.PostPublished {
		invalid = append(invalid, domain.FieldError{Field: "status", Message: "must be DRAFT or PUBLISHED"})
	}

	mediaType := input.MediaType
	if mediaType == "" {
		mediaType = defaultMediaType(input.MediaURLs)
	}
	if !mediaType.Valid() {
		invalid = append(invalid, domain.FieldError{Field: "mediaType", Message: "must be NONE, IMAGE, VIDEO or MIXED"})
	}
	if len(invalid) > 0 {
		return nil, domain.NewValidationError("Invalid post", invalid...)
	}

	productID := nonEmpty(input.ProductID)
	if err := s.checkProduct(ctx, productID); err != nil {
		return nil, err
	}

	post := &domain.Post{
		AuthorID:   authorID,
		Content:    content,
		MediaURLs:  domain.StringArray(input.MediaURLs),
		MediaType:  mediaType,
		Status:     status,
		Visibility: visibility,
		ProductID:  productID,
	}
	if post.MediaURLs == nil {
		post.MediaURLs = domain.StringArray{}
	}
	if status == domain.PostPublished {
		now := s.now().UTC()
		post.PublishedAt = &now
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Post created", map[string]interface{}{"post_id": post.ID, "author_id": authorID, "status": status})
	return post, nil
}

func validateContent(content string) []domain.FieldError {
	if content == "" {
		return []domain.FieldError{{Field: "content", Message: "required"}}
	}
	if len([]rune(content)) > domain.MaxPostContent {
		return []domain.FieldError{{Field: "content", Message: fmt.Sprintf("at most %d characters", domain.MaxPostContent)}}
	}
	return nil
}

func validateMedia(urls []string) []domain.FieldError {
	if len(urls) > domain.MaxPostMedia {
		return []domain.FieldError{{Field: "mediaUrls", Message: fmt.Sprintf("at most %d items", domain.MaxPostMedia)}}
	}
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			return []domain.FieldError{{Field: "mediaUrls", Message: "must not contain empty urls"}}
		}
	}
	return nil
}

func defaultMediaType(urls []string) domain.MediaType {
	if len(urls) == 0 {
		return domain.MediaNone
	}
	return domain.MediaImage
}

func (s *PostService) GetPosts(ctx context.Context, filter domain.PostFilter) (_ *domain.Page[*domain.Post], err error) {
	defer observe("list", "post", time.Now(), &err)

	if filter.Status == "" {
		filter.Status = domain.PostPublished
	}
	if !filter.Status.Valid() {
		return nil, domain.NewValidationError("Invalid status filter", domain.FieldError{Field: "status", Message: "unknown status"})
	}
	if filter.Visibility != "" && !filter.Visibility.Valid() {
		return nil, domain.NewValidationError("Invalid visibility filter", domain.FieldError{Field: "visibility", Message: "unknown visibility"})
	}
	filter.PageRequest = filter.PageRequest.Normalize()

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	if err := s.attachLiked(ctx, filter.ViewerID, posts); err != nil {
		return nil, err
	}
	return &domain.Page[*domain.Post]{
		Data:       posts,
		Pagination: domain.NewPagination(filter.PageRequest, total),
	}, nil
}

// GetPostByID counts every successful read as a view.
func (s *PostService) GetPostByID(ctx context.Context, id, viewerID string) (*domain.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.IncrementViews(ctx, post.ID); err != nil {
		return nil, err
	}
	post.ViewsCount++
	if err := s.attachLiked(ctx, viewerID, []*domain.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id, callerID string, patch domain.PostPatch) (*domain.Post, error) {
	post, err := s.authored(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	var invalid []domain.FieldError

	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if errs := validateContent(content); len(errs) > 0 {
			invalid = append(invalid, errs...)
		} else {
			fields["content"] = content
		}
	}
	if patch.MediaURLs != nil {
		if errs := validateMedia(*patch.MediaURLs); len(errs) > 0 {
			invalid = append(invalid, errs...)
		} else {
			urls := domain.StringArray(*patch.MediaURLs)
			if urls == nil {
				urls = domain.StringArray{}
			}
			fields["media_urls"] = urls
			if patch.MediaType == nil {
				fields["media_type"] = defaultMediaType(urls)
			}
		}
	}
	if patch.MediaType != nil {
		if !patch.MediaType.Valid() {
			invalid = append(invalid, domain.FieldError{Field: "mediaType", Message: "must be NONE, IMAGE, VIDEO or MIXED"})
		} else {
			fields["media_type"] = *patch.MediaType
		}
	}
	if patch.Visibility != nil {
		if !patch.Visibility.Valid() {
			invalid = append(invalid, domain.FieldError{Field: "visibility", Message: "must be PUBLIC, FOLLOWERS or PRIVATE"})
		} else {
			fields["visibility"] = *patch.Visibility
		}
	}
	if len(invalid) > 0 {
		return nil, domain.NewValidationError("Invalid post", invalid...)
	}

	if patch.Status != nil && *patch.Status != post.Status {
		next := *patch.Status
		if !next.Valid() {
			return nil, domain.NewValidationError("Invalid status", domain.FieldError{Field: "status", Message: "unknown status"})
		}
		if !post.Status.CanTransitionTo(next) {
			return nil, domain.NewValidationError("Cannot change status from " + string(post.Status) + " to " + string(next))
		}
		fields["status"] = next
		if next == domain.PostPublished && post.PublishedAt == nil {
			fields["published_at"] = s.now().UTC()
		}
	}

	switch {
	case patch.ClearProduct:
		fields["product_id"] = nil
	case patch.ProductID != nil:
		productID := nonEmpty(patch.ProductID)
		if err := s.checkProduct(ctx, productID); err != nil {
			return nil, err
		}
		fields["product_id"] = productID
	}

	if err := s.posts.Update(ctx, post.ID, fields); err != nil {
		return nil, err
	}
	return s.find(ctx, post.ID)
}

// DeletePost removes the post together with its likes and comments.
func (s *PostService) DeletePost(ctx context.Context, id, callerID string) error {
	post, err := s.authored(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrPostNotFound
		}
		return err
	}
	s.logger.InfoContext(ctx, "Post deleted", map[string]interface{}{"post_id": post.ID})
	return nil
}

func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (_ *domain.LikeResult, err error) {
	defer observe("toggle_like", "post", time.Now(), &err)

	result, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotFound
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("Like is already being processed")
		}
		return nil, err
	}
	metrics.RecordLikeToggle(result.Liked)
	return result, nil
}

func (s *PostService) AddComment(ctx context.Context, postID, userID, content string, parentID *string) (_ *domain.PostComment, err error) {
	defer observe("create", "comment", time.Now(), &err)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewValidationError("Comment content is required", domain.FieldError{Field: "content", Message: "required"})
	}
	if len([]rune(content)) > domain.MaxCommentLength {
		return nil, domain.NewValidationError("Comment is too long",
			domain.FieldError{Field: "content", Message: fmt.Sprintf("at most %d characters", domain.MaxCommentLength)})
	}

	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}

	parentID = nonEmpty(parentID)
	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.PostID != postID {
			return nil, domain.NewValidationError("Parent comment not found on this post", domain.FieldError{Field: "parentId", Message: "does not exist"})
		}
		if parent.ParentID != nil {
			return nil, domain.NewValidationError("Replies can only be made to top-level comments", domain.FieldError{Field: "parentId", Message: "must be a top-level comment"})
		}
	}

	comment := &domain.PostComment{
		PostID:   postID,
		UserID:   userID,
		Content:  content,
		ParentID: parentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotFound
		}
		return nil, err
	}

	metrics.RecordComment(parentID != nil)
	return comment, nil
}

// GetComments pages top-level comments newest first, each with a preview of
// its newest replies and the total reply count.
func (s *PostService) GetComments(ctx context.Context, postID string, page domain.PageRequest) (*domain.Page[*domain.CommentThread], error) {
	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}
	page = page.Normalize()

	comments, total, err := s.comments.ListTopLevel(ctx, postID, page)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	replies, err := s.comments.RecentReplies(ctx, ids, domain.ReplyPreviewSize)
	if err != nil {
		return nil, err
	}
	counts, err := s.comments.CountReplies(ctx, ids)
	if err != nil {
		return nil, err
	}

	threads := make([]*domain.CommentThread, 0, len(comments))
	for _, c := range comments {
		preview := replies[c.ID]
		if preview == nil {
			preview = []*domain.PostComment{}
		}
		threads = append(threads, &domain.CommentThread{
			PostComment: c,
			Replies:     preview,
			Count:       domain.ReplyCount{Replies: counts[c.ID]},
		})
	}
	return &domain.Page[*domain.CommentThread]{
		Data:       threads,
		Pagination: domain.NewPagination(page, total),
	}, nil
}

func (s *PostService) GetReplies(ctx context.Context, commentID string, page domain.PageRequest) (*domain.Page[*domain.PostComment], error) {
	parent, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, domain.ErrCommentNotFound
	}
	page = page.Normalize()

	replies, total, err := s.comments.ListReplies(ctx, parent.ID, page)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []*domain.PostComment{}
	}
	return &domain.Page[*domain.PostComment]{
		Data:       replies,
		Pagination: domain.NewPagination(page, total),
	}, nil
}

// DeleteComment is allowed for the comment's author and the post's author.
func (s *PostService) DeleteComment(ctx context.Context, commentID, callerID string) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return domain.ErrCommentNotFound
	}
	if comment.UserID != callerID {
		post, err := s.find(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if post.AuthorID != callerID {
			return domain.NewForbiddenError("You can only delete your own comments")
		}
	}

	removed, err := s.comments.Delete(ctx, comment)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrCommentNotFound
		}
		return err
	}
	s.logger.InfoContext(ctx, "Comment deleted", map[string]interface{}{"comment_id": comment.ID, "rows_removed": removed})
	return nil
}

func (s *PostService) find(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) authored(ctx context.Context, id, callerID string) (*domain.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != callerID {
		return nil, domain.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

func (s *PostService) checkProduct(ctx context.Context, productID *string) error {
	if productID == nil {
		return nil
	}
	ok, err := s.posts.ProductExists(ctx, *productID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewValidationError("Linked product not found", domain.FieldError{Field: "productId", Message: "does not exist"})
	}
	return nil
}

func (s *PostService) attachLiked(ctx context.Context, viewerID string, posts []*domain.Post) error {
	if viewerID == "" || len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		v := liked[p.ID]
		p.IsLiked = &v
	}
	return nil
}
