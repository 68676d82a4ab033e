package repository

import (
	"errors"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// SaleRepository 销售记录数据访问接口
type SaleRepository interface {
	Create(sale *models.Sale) error
	GetByID(id uint) (*models.Sale, error)
	GetByUserAndID(userID, id uint) (*models.Sale, error)
	List(filter SaleListFilter) ([]models.Sale, int64, error)
	WithTx(tx *gorm.DB) *GormSaleRepository
}

// GormSaleRepository GORM 实现
type GormSaleRepository struct {
	db *gorm.DB
}

// NewSaleRepository 创建销售记录仓库
func NewSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSaleRepository) WithTx(tx *gorm.DB) *GormSaleRepository {
	if tx == nil {
		return r
	}
	return &GormSaleRepository{db: tx}
}

// Create 创建销售记录
func (r *GormSaleRepository) Create(sale *models.Sale) error {
	return r.db.Create(sale).Error
}

// GetByID 根据 ID 获取销售记录
func (r *GormSaleRepository) GetByID(id uint) (*models.Sale, error) {
	if id == 0 {
		return nil, nil
	}
	var sale models.Sale
	if err := r.db.Preload("Product").First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// GetByUserAndID 获取用户自己的销售记录
func (r *GormSaleRepository) GetByUserAndID(userID, id uint) (*models.Sale, error) {
	if userID == 0 || id == 0 {
		return nil, nil
	}
	var sale models.Sale
	if err := r.db.Preload("Product").Where("user_id = ? AND id = ?", userID, id).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// List 分页查询销售记录
func (r *GormSaleRepository) List(filter SaleListFilter) ([]models.Sale, int64, error) {
	query := r.db.Model(&models.Sale{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.PaymentType != "" {
		query = query.Where("payment_type = ?", filter.PaymentType)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var sales []models.Sale
	if err := query.Preload("Product").Order("id desc").Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}
