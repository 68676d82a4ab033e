package service

import (
	"strings"

	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品服务
type ProductService struct {
	productRepo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// ListPublic 前台商品列表（仅可购买）
func (s *ProductService) ListPublic(categoryID uint, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.productRepo.List(repository.ProductListFilter{
		Page:            page,
		PageSize:        pageSize,
		CategoryID:      categoryID,
		Search:          search,
		OnlyPurchasable: true,
		WithCategory:    true,
	})
}

// ListAdmin 管理端商品列表
func (s *ProductService) ListAdmin(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	filter.WithCategory = true
	return s.productRepo.List(filter)
}

// GetPublic 前台商品详情
func (s *ProductService) GetPublic(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.CanBePurchased {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ProductInput 商品创建/更新输入
type ProductInput struct {
	CategoryID       uint
	Name             string
	Description      string
	Price            decimal.Decimal
	MinOrderQuantity *int
	MaxOrderQuantity *int
	CanBePurchased   bool
	SortOrder        int
}

func (in ProductInput) validate() error {
	if in.CategoryID == 0 || strings.TrimSpace(in.Name) == "" {
		return ErrProductInvalid
	}
	if in.Price.IsNegative() {
		return ErrInvalidAmount
	}
	if in.MinOrderQuantity != nil && *in.MinOrderQuantity <= 0 {
		return ErrQuantityOutOfRange
	}
	if in.MaxOrderQuantity != nil && *in.MaxOrderQuantity <= 0 {
		return ErrQuantityOutOfRange
	}
	if in.MinOrderQuantity != nil && in.MaxOrderQuantity != nil && *in.MinOrderQuantity > *in.MaxOrderQuantity {
		return ErrQuantityOutOfRange
	}
	return nil
}

// Create 创建商品，库存计数从 0 开始，随单元入库增加
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	product := &models.Product{
		CategoryID:       input.CategoryID,
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		PriceAmount:      models.NewMoneyFromDecimal(input.Price),
		MinOrderQuantity: input.MinOrderQuantity,
		MaxOrderQuantity: input.MaxOrderQuantity,
		CanBePurchased:   input.CanBePurchased,
		SortOrder:        input.SortOrder,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	logger.Infow("product_created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// Update 更新商品资料，不改变库存计数
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	product.CategoryID = input.CategoryID
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.PriceAmount = models.NewMoneyFromDecimal(input.Price)
	product.MinOrderQuantity = input.MinOrderQuantity
	product.MaxOrderQuantity = input.MaxOrderQuantity
	product.CanBePurchased = input.CanBePurchased
	product.SortOrder = input.SortOrder
	product.Category = nil
	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}
