package repository

import (
	"context"
	"fmt"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"gorm.io/gorm"
)

type CommentRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewCommentRepository(db *gorm.DB, logger logger.Logger) domain.CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (*domain.PostComment, error) {
	var comment domain.PostComment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &comment, nil
}

// Create inserts the comment and bumps the post's comments_count in the same
// transaction.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.PostComment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		if err != ErrNotFound {
			r.logger.Error("Failed to create comment", map[string]interface{}{"post_id": comment.PostID, "error": err.Error()})
		}
		return fmt.Errorf("create comment: %w", err)
	}

	summaries, err := userSummaries(ctx, r.db, []string{comment.UserID})
	if err != nil {
		return err
	}
	comment.User = summaries[comment.UserID]
	return nil
}

// ListTopLevel pages through a post's top-level comments, newest first.
func (r *CommentRepository) ListTopLevel(ctx context.Context, postID string, page domain.PageRequest) ([]*domain.PostComment, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.PostComment{}).
		Where("post_id = ? AND parent_id IS NULL", postID)
	return r.page(ctx, q, page, "created_at DESC, id DESC")
}

// ListReplies pages through a thread oldest first.
func (r *CommentRepository) ListReplies(ctx context.Context, parentID string, page domain.PageRequest) ([]*domain.PostComment, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.PostComment{}).Where("parent_id = ?", parentID)
	return r.page(ctx, q, page, "created_at ASC, id ASC")
}

func (r *CommentRepository) page(ctx context.Context, q *gorm.DB, page domain.PageRequest, order string) ([]*domain.PostComment, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}
	var comments []*domain.PostComment
	if err := q.Order(order).Limit(page.Limit).Offset(page.Offset()).Find(&comments).Error; err != nil {
		r.logger.Error("Failed to list comments", map[string]interface{}{"error": err.Error()})
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	if err := r.attachUsers(ctx, comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// RecentReplies loads the newest perParent replies for each parent with one
// query.
func (r *CommentRepository) RecentReplies(ctx context.Context, parentIDs []string, perParent int) (map[string][]*domain.PostComment, error) {
	result := make(map[string][]*domain.PostComment, len(parentIDs))
	if len(parentIDs) == 0 {
		return result, nil
	}

	var replies []*domain.PostComment
	err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at DESC, id DESC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}

	kept := make([]*domain.PostComment, 0, len(replies))
	for _, reply := range replies {
		pid := *reply.ParentID
		if len(result[pid]) >= perParent {
			continue
		}
		result[pid] = append(result[pid], reply)
		kept = append(kept, reply)
	}
	if err := r.attachUsers(ctx, kept); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CommentRepository) CountReplies(ctx context.Context, parentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ParentID string
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&domain.PostComment{}).
		Select("parent_id, COUNT(*) AS total").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}
	for _, row := range rows {
		counts[row.ParentID] = row.Total
	}
	return counts, nil
}

// Delete removes the comment and its replies, then lowers comments_count by
// the number of rows removed. Returns that number.
func (r *CommentRepository) Delete(ctx context.Context, comment *domain.PostComment) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		replies := tx.Where("parent_id = ?", comment.ID).Delete(&domain.PostComment{})
		if replies.Error != nil {
			return replies.Error
		}
		self := tx.Where("id = ?", comment.ID).Delete(&domain.PostComment{})
		if self.Error != nil {
			return self.Error
		}
		if self.RowsAffected == 0 {
			return ErrNotFound
		}
		removed = replies.RowsAffected + self.RowsAffected
		return tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count - ?", removed)).Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete comment: %w", err)
	}
	return removed, nil
}

func (r *CommentRepository) attachUsers(ctx context.Context, comments []*domain.PostComment) error {
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	summaries, err := userSummaries(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, c := range comments {
		c.User = summaries[c.UserID]
	}
	return nil
}
