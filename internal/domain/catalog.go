package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type Category struct {
	Base
	Name         string      `json:"name" gorm:"type:varchar(100);not null"`
	Slug         string      `json:"slug" gorm:"type:varchar(120);uniqueIndex;not null"`
	Description  string      `json:"description" gorm:"type:text"`
	ImageURL     string      `json:"imageUrl" gorm:"type:text"`
	ParentID     *string     `json:"parentId" gorm:"type:varchar(36);index"`
	DisplayOrder int         `json:"displayOrder" gorm:"not null;default:0"`
	IsActive     bool        `json:"isActive" gorm:"not null;default:true"`
	Children     []*Category `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	ProductCount int64       `json:"productCount" gorm:"-"`
}

type CategoryInput struct {
	Name         string
	Description  string
	ImageURL     string
	ParentID     *string
	DisplayOrder int
}

type ProductStatus string

const (
	ProductDraft      ProductStatus = "DRAFT"
	ProductActive     ProductStatus = "ACTIVE"
	ProductOutOfStock ProductStatus = "OUT_OF_STOCK"
	ProductArchived   ProductStatus = "ARCHIVED"
)

var productTransitions = map[ProductStatus][]ProductStatus{
	ProductDraft:      {ProductActive, ProductArchived},
	ProductActive:     {ProductOutOfStock, ProductDraft, ProductArchived},
	ProductOutOfStock: {ProductActive, ProductArchived},
	ProductArchived:   {},
}

func (s ProductStatus) Valid() bool {
	_, ok := productTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status table allows s -> next.
// Staying in the same status is not a transition.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	for _, allowed := range productTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Product struct {
	Base
	SellerID       string           `json:"sellerId" gorm:"type:varchar(36);not null;index"`
	CategoryID     *string          `json:"categoryId" gorm:"type:varchar(36);index"`
	Title          string           `json:"title" gorm:"type:varchar(255);not null"`
	Slug           string           `json:"slug" gorm:"type:varchar(300);uniqueIndex;not null"`
	Description    string           `json:"description" gorm:"type:text"`
	Price          decimal.Decimal  `json:"price" gorm:"type:decimal(14,2);not null"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty" gorm:"type:decimal(14,2)"`
	Stock          int              `json:"stock" gorm:"not null;default:0"`
	SKU            *string          `json:"sku,omitempty" gorm:"column:sku;type:varchar(100);uniqueIndex"`
	Status         ProductStatus    `json:"status" gorm:"type:varchar(20);not null;default:DRAFT;index"`
	ViewsCount     int64            `json:"viewsCount" gorm:"not null;default:0"`
	Images         []ProductImage   `json:"images" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants       []ProductVariant `json:"variants" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Seller         *UserSummary     `json:"seller,omitempty" gorm:"-"`
	Category       *Category        `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

type ProductImage struct {
	Base
	ProductID    string `json:"productId" gorm:"type:varchar(36);not null;index"`
	URL          string `json:"url" gorm:"type:text;not null"`
	PublicID     string `json:"publicId" gorm:"type:varchar(255)"`
	AltText      string `json:"altText" gorm:"type:varchar(255)"`
	DisplayOrder int    `json:"displayOrder" gorm:"not null;default:0"`
	IsPrimary    bool   `json:"isPrimary" gorm:"not null;default:false"`
}

type ProductVariant struct {
	Base
	ProductID string          `json:"productId" gorm:"type:varchar(36);not null;index"`
	Name      string          `json:"name" gorm:"type:varchar(100);not null"`
	SKU       *string         `json:"sku,omitempty" gorm:"column:sku;type:varchar(100)"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(14,2);not null"`
	Stock     int             `json:"stock" gorm:"not null;default:0"`
	Options   StringArray     `json:"options"`
}

type ImageInput struct {
	URL      string
	PublicID string
	AltText  string
}

type VariantInput struct {
	Name    string
	SKU     *string
	Price   decimal.Decimal
	Stock   int
	Options []string
}

type ProductInput struct {
	Title          string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Stock          int
	SKU            *string
	CategoryID     *string
	Images         []ImageInput
	Variants       []VariantInput
}

// ProductPatch: nil fields are left unchanged. Description may be cleared
// with "", CategoryID and CompareAtPrice are cleared by ClearCategory /
// ClearCompareAtPrice.
type ProductPatch struct {
	Title               *string
	Description         *string
	Price               *decimal.Decimal
	CompareAtPrice      *decimal.Decimal
	ClearCompareAtPrice bool
	Stock               *int
	CategoryID          *string
	ClearCategory       bool
	Status              *ProductStatus
}

type ProductSort string

const (
	SortCreatedAt ProductSort = "createdAt"
	SortPrice     ProductSort = "price"
	SortViews     ProductSort = "viewsCount"
	SortTitle     ProductSort = "title"
)

type ProductFilter struct {
	PageRequest
	CategoryID string
	SellerID   string
	Status     ProductStatus
	AnyStatus  bool
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SortBy     ProductSort
	SortDesc   bool
}

func (f ProductFilter) OrderClause() string {
	column := "created_at"
	switch f.SortBy {
	case SortPrice:
		column = "price"
	case SortViews:
		column = "views_count"
	case SortTitle:
		column = "title"
	}
	// id keeps equal sort keys in a stable order across pages
	if f.SortDesc {
		return column + " DESC, id DESC"
	}
	return column + " ASC, id ASC"
}

// HasPublishableContent is the publish guard: at least one image and a
// non-blank description.
func (p *Product) HasPublishableContent() bool {
	return len(p.Images) > 0 && strings.TrimSpace(p.Description) != ""
}

type CategoryRepository interface {
	FindActive(ctx context.Context, rootsOnly bool) ([]*Category, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Category, error)
	CountProducts(ctx context.Context, categoryIDs []string) (map[string]int64, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, category *Category) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	IncrementViews(ctx context.Context, id string) error
	AddImages(ctx context.Context, productID string, images []ImageInput) ([]ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID string) error
}

type CategoryService interface {
	GetCategories(ctx context.Context) ([]*Category, error)
	GetRootCategories(ctx context.Context) ([]*Category, error)
	GetCategory(ctx context.Context, identifier string) (*Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*Category, error)
}

type ProductService interface {
	GetProducts(ctx context.Context, filter ProductFilter) (*Page[*Product], error)
	GetMyProducts(ctx context.Context, sellerID string, filter ProductFilter) (*Page[*Product], error)
	GetProduct(ctx context.Context, identifier string) (*Product, error)
	CreateProduct(ctx context.Context, sellerID string, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id, callerID string, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id, callerID string) error
	PublishProduct(ctx context.Context, id, callerID string) (*Product, error)
	AddProductImages(ctx context.Context, id, callerID string, images []ImageInput) ([]ProductImage, error)
	DeleteProductImage(ctx context.Context, id, imageID, callerID string) error
}
