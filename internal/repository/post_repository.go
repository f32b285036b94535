package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewPostRepository(db *gorm.DB, logger logger.Logger) domain.PostRepository {
	return &PostRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		r.logger.Error("Post lookup failed", map[string]interface{}{"id": id, "error": err.Error()})
		return nil, fmt.Errorf("find post: %w", err)
	}
	if err := r.attachAuthors(ctx, []*domain.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Post{})
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.Visibility != "" {
		q = q.Where("visibility = ?", filter.Visibility)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where(`LOWER(content) LIKE ? ESCAPE '\'`, containsPattern(s))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	var posts []*domain.Post
	err := q.Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset()).
		Find(&posts).Error
	if err != nil {
		r.logger.Error("Failed to list posts", map[string]interface{}{"error": err.Error()})
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	if err := r.attachAuthors(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.logger.Error("Failed to create post", map[string]interface{}{"author_id": post.AuthorID, "error": err.Error()})
		return fmt.Errorf("create post: %w", err)
	}
	return r.attachAuthors(ctx, []*domain.Post{post})
}

func (r *PostRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// Delete removes the post, its likes and all of its comments atomically.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.PostComment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (r *PostRepository) IncrementViews(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment post views: %w", err)
	}
	return nil
}

// ToggleLike flips the (post, user) like and moves likes_count by the same
// amount inside one transaction. The post row is locked first so concurrent
// toggles on the same post serialize on Postgres.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string) (*domain.LikeResult, error) {
	var result domain.LikeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		err := lockForUpdate(tx).Select("id").First(&post, "id = ?", postID).Error
		if err != nil {
			if notFound(err) {
				return ErrNotFound
			}
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&domain.PostLike{})
		if res.Error != nil {
			return res.Error
		}

		delta := "likes_count - ?"
		if res.RowsAffected == 0 {
			if err := tx.Create(&domain.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
				return translate(err)
			}
			delta = "likes_count + ?"
			result.Liked = true
		}

		if err := tx.Model(&domain.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr(delta, 1)).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Post{}).Select("likes_count").Where("id = ?", postID).
			Scan(&result.LikesCount).Error
	})
	if err != nil {
		if err != ErrNotFound {
			r.logger.Error("Failed to toggle like", map[string]interface{}{"post_id": postID, "user_id": userID, "error": err.Error()})
		}
		return nil, fmt.Errorf("toggle like: %w", err)
	}
	return &result, nil
}

func (r *PostRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load liked posts: %w", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *PostRepository) ProductExists(ctx context.Context, productID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return count > 0, nil
}

func (r *PostRepository) attachAuthors(ctx context.Context, posts []*domain.Post) error {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	summaries, err := userSummaries(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Author = summaries[p.AuthorID]
	}
	return nil
}

// lockForUpdate adds FOR UPDATE where the dialect supports row locks. SQLite
// serializes writers at the database level instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
