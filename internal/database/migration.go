package database

import (
	"context"
	"fmt"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"gorm.io/gorm"
)

type Migration struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(150);uniqueIndex;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (Migration) TableName() string {
	return "migrations"
}

type MigrationStep struct {
	Name string
	Func func(tx *gorm.DB) error
}

type MigrationService struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewMigrationService(db *gorm.DB, logger logger.Logger) *MigrationService {
	return &MigrationService{
		db:     db,
		logger: logger,
	}
}

// Steps lists every schema migration in application order. Names are
// recorded and must never be reused.
func Steps() []MigrationStep {
	return []MigrationStep{
		{"create_users_table", autoMigrate(&domain.User{})},
		{"create_categories_table", autoMigrate(&domain.Category{})},
		{"create_products_tables", autoMigrate(&domain.Product{}, &domain.ProductImage{}, &domain.ProductVariant{})},
		{"create_posts_table", autoMigrate(&domain.Post{})},
		{"create_post_likes_table", autoMigrate(&domain.PostLike{})},
		{"create_post_comments_table", autoMigrate(&domain.PostComment{})},
		{"add_post_comments_post_parent_index", CreateCommentThreadIndex},
	}
}

func autoMigrate(models ...interface{}) func(*gorm.DB) error {
	return func(tx *gorm.DB) error {
		return tx.AutoMigrate(models...)
	}
}

func CreateCommentThreadIndex(tx *gorm.DB) error {
	return tx.Exec("CREATE INDEX IF NOT EXISTS idx_post_comments_post_parent ON post_comments (post_id, parent_id, created_at)").Error
}

func (m *MigrationService) InitMigrationTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&Migration{}); err != nil {
		m.logger.Error("Failed to create migrations table", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

func (m *MigrationService) IsMigrationApplied(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := m.db.WithContext(ctx).Model(&Migration{}).Where("name = ?", name).Count(&count).Error; err != nil {
		m.logger.Error("Failed to check migration state", map[string]interface{}{"name": name, "error": err.Error()})
		return false, err
	}
	return count > 0, nil
}

// ApplyMigration runs one step and records it in the same transaction.
func (m *MigrationService) ApplyMigration(ctx context.Context, step MigrationStep) error {
	applied, err := m.IsMigrationApplied(ctx, step.Name)
	if err != nil {
		return err
	}
	if applied {
		m.logger.Debug("Migration already applied", map[string]interface{}{"name": step.Name})
		return nil
	}

	m.logger.Info("Applying migration", map[string]interface{}{"name": step.Name})

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := step.Func(tx); err != nil {
			return err
		}
		return tx.Create(&Migration{Name: step.Name, AppliedAt: time.Now().UTC()}).Error
	})
	if err != nil {
		m.logger.Error("Migration rolled back", map[string]interface{}{"name": step.Name, "error": err.Error()})
		return err
	}

	m.logger.Info("Migration applied", map[string]interface{}{"name": step.Name})
	return nil
}

func (m *MigrationService) RunMigrations(ctx context.Context) error {
	m.logger.Info("Running migrations", nil)

	if err := m.InitMigrationTable(ctx); err != nil {
		return fmt.Errorf("could not create migrations table: %w", err)
	}

	for _, step := range Steps() {
		if err := m.ApplyMigration(ctx, step); err != nil {
			return fmt.Errorf("migration %s failed: %w", step.Name, err)
		}
	}
	return nil
}

// Applied returns the names of recorded migrations in application order.
func (m *MigrationService) Applied(ctx context.Context) ([]Migration, error) {
	var applied []Migration
	if err := m.db.WithContext(ctx).Order("id ASC").Find(&applied).Error; err != nil {
		return nil, err
	}
	return applied, nil
}
