package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostPublished PostStatus = "PUBLISHED"
	PostArchived  PostStatus = "ARCHIVED"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostDraft:     {PostPublished, PostArchived},
	PostPublished: {PostArchived},
	PostArchived:  {},
}

func (s PostStatus) Valid() bool {
	_, ok := postTransitions[s]
	return ok
}

func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	for _, allowed := range postTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityFollowers Visibility = "FOLLOWERS"
	VisibilityPrivate   Visibility = "PRIVATE"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

type MediaType string

const (
	MediaNone  MediaType = "NONE"
	MediaImage MediaType = "IMAGE"
	MediaVideo MediaType = "VIDEO"
	MediaMixed MediaType = "MIXED"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaNone, MediaImage, MediaVideo, MediaMixed:
		return true
	}
	return false
}

const (
	MaxPostContent   = 5000
	MaxPostMedia     = 10
	MaxCommentLength = 2000
	ReplyPreviewSize = 3
)

type Post struct {
	Base
	AuthorID      string       `json:"authorId" gorm:"type:varchar(36);not null;index"`
	Content       string       `json:"content" gorm:"type:text;not null"`
	MediaURLs     StringArray  `json:"mediaUrls" gorm:"column:media_urls"`
	MediaType     MediaType    `json:"mediaType" gorm:"type:varchar(10);not null;default:NONE"`
	Status        PostStatus   `json:"status" gorm:"type:varchar(20);not null;default:PUBLISHED;index"`
	Visibility    Visibility   `json:"visibility" gorm:"type:varchar(20);not null;default:PUBLIC"`
	ProductID     *string      `json:"productId" gorm:"type:varchar(36);index"`
	LikesCount    int64        `json:"likesCount" gorm:"not null;default:0"`
	CommentsCount int64        `json:"commentsCount" gorm:"not null;default:0"`
	SharesCount   int64        `json:"sharesCount" gorm:"not null;default:0"`
	ViewsCount    int64        `json:"viewsCount" gorm:"not null;default:0"`
	PublishedAt   *time.Time   `json:"publishedAt"`
	Author        *UserSummary `json:"author,omitempty" gorm:"-"`
	IsLiked       *bool        `json:"isLiked,omitempty" gorm:"-"`
}

type PostLike struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID    string    `json:"postId" gorm:"type:varchar(36);not null;uniqueIndex:idx_post_like_user"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_post_like_user;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

type PostComment struct {
	Base
	PostID   string       `json:"postId" gorm:"type:varchar(36);not null;index"`
	UserID   string       `json:"userId" gorm:"type:varchar(36);not null;index"`
	Content  string       `json:"content" gorm:"type:text;not null"`
	ParentID *string      `json:"parentId" gorm:"type:varchar(36);index"`
	User     *UserSummary `json:"user,omitempty" gorm:"-"`
}

type ReplyCount struct {
	Replies int64 `json:"replies"`
}

// CommentThread is a top-level comment with a preview of its newest replies.
type CommentThread struct {
	*PostComment
	Replies []*PostComment `json:"replies"`
	Count   ReplyCount     `json:"_count"`
}

type PostInput struct {
	Content    string
	MediaURLs  []string
	MediaType  MediaType
	Visibility Visibility
	Status     PostStatus
	ProductID  *string
}

// PostPatch: nil means unchanged. ClearProduct unlinks the product.
type PostPatch struct {
	Content      *string
	MediaURLs    *[]string
	MediaType    *MediaType
	Visibility   *Visibility
	Status       *PostStatus
	ProductID    *string
	ClearProduct bool
}

type PostFilter struct {
	PageRequest
	AuthorID   string
	ProductID  string
	Visibility Visibility
	Status     PostStatus
	Search     string
	ViewerID   string
}

type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

type PostRepository interface {
	FindByID(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, filter PostFilter) ([]*Post, int64, error)
	Create(ctx context.Context, post *Post) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	ProductExists(ctx context.Context, productID string) (bool, error)
}

type CommentRepository interface {
	FindByID(ctx context.Context, id string) (*PostComment, error)
	Create(ctx context.Context, comment *PostComment) error
	ListTopLevel(ctx context.Context, postID string, page PageRequest) ([]*PostComment, int64, error)
	ListReplies(ctx context.Context, parentID string, page PageRequest) ([]*PostComment, int64, error)
	RecentReplies(ctx context.Context, parentIDs []string, perParent int) (map[string][]*PostComment, error)
	CountReplies(ctx context.Context, parentIDs []string) (map[string]int64, error)
	Delete(ctx context.Context, comment *PostComment) (int64, error)
}

type PostService interface {
	CreatePost(ctx context.Context, authorID string, input PostInput) (*Post, error)
	GetPosts(ctx context.Context, filter PostFilter) (*Page[*Post], error)
	GetPostByID(ctx context.Context, id, viewerID string) (*Post, error)
	UpdatePost(ctx context.Context, id, callerID string, patch PostPatch) (*Post, error)
	DeletePost(ctx context.Context, id, callerID string) error
	ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error)
	AddComment(ctx context.Context, postID, userID, content string, parentID *string) (*PostComment, error)
	GetComments(ctx context.Context, postID string, page PageRequest) (*Page[*CommentThread], error)
	GetReplies(ctx context.Context, commentID string, page PageRequest) (*Page[*PostComment], error)
	DeleteComment(ctx context.Context, commentID, callerID string) error
}
