package repository

import (
	"errors"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车预留数据访问接口
type CartRepository interface {
	ListByUser(userID uint) ([]models.CartProduct, error)
	GetByUserAndID(userID, id uint) (*models.CartProduct, error)
	GetByUserAndIDForUpdate(userID, id uint) (*models.CartProduct, error)
	GetByUserAndProductForUpdate(userID, productID uint) (*models.CartProduct, error)
	ListByUserForUpdate(userID uint) ([]models.CartProduct, error)
	ListByProductForUpdate(productID uint) ([]models.CartProduct, error)
	SumReservedByProduct(productID uint) (int64, error)
	Create(item *models.CartProduct) error
	UpdateQuantity(id uint, quantity int) error
	DeleteByID(id uint) (int64, error)
	DeleteByProduct(productID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByUser 获取用户购物车项
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartProduct, error) {
	var items []models.CartProduct
	if err := r.db.Preload("Product").Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByUserAndID 获取用户的购物车项
func (r *GormCartRepository) GetByUserAndID(userID, id uint) (*models.CartProduct, error) {
	return r.first(r.db, "user_id = ? AND id = ?", userID, id)
}

// GetByUserAndIDForUpdate 加锁获取用户的购物车项
func (r *GormCartRepository) GetByUserAndIDForUpdate(userID, id uint) (*models.CartProduct, error) {
	return r.first(forUpdate(r.db), "user_id = ? AND id = ?", userID, id)
}

// GetByUserAndProductForUpdate 加锁获取用户对某商品的预留
func (r *GormCartRepository) GetByUserAndProductForUpdate(userID, productID uint) (*models.CartProduct, error) {
	return r.first(forUpdate(r.db), "user_id = ? AND product_id = ?", userID, productID)
}

func (r *GormCartRepository) first(query *gorm.DB, condition string, userID, value uint) (*models.CartProduct, error) {
	if userID == 0 || value == 0 {
		return nil, nil
	}
	var item models.CartProduct
	if err := query.Where(condition, userID, value).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByUserForUpdate 加锁获取用户全部预留
func (r *GormCartRepository) ListByUserForUpdate(userID uint) ([]models.CartProduct, error) {
	var items []models.CartProduct
	if err := forUpdate(r.db).Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListByProductForUpdate 加锁获取商品全部预留
func (r *GormCartRepository) ListByProductForUpdate(productID uint) ([]models.CartProduct, error) {
	var items []models.CartProduct
	if err := forUpdate(r.db).Where("product_id = ?", productID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SumReservedByProduct 统计商品在所有购物车中的预留数量
func (r *GormCartRepository) SumReservedByProduct(productID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.CartProduct{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Create 创建购物车项
func (r *GormCartRepository) Create(item *models.CartProduct) error {
	return r.db.Create(item).Error
}

// UpdateQuantity 更新预留数量
func (r *GormCartRepository) UpdateQuantity(id uint, quantity int) error {
	if id == 0 || quantity <= 0 {
		return errors.New("invalid cart quantity params")
	}
	return r.db.Model(&models.CartProduct{}).Where("id = ?", id).Update("quantity", quantity).Error
}

// DeleteByID 删除购物车项
func (r *GormCartRepository) DeleteByID(id uint) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&models.CartProduct{})
	return result.RowsAffected, result.Error
}

// DeleteByProduct 删除商品的全部预留
func (r *GormCartRepository) DeleteByProduct(productID uint) (int64, error) {
	result := r.db.Where("product_id = ?", productID).Delete(&models.CartProduct{})
	return result.RowsAffected, result.Error
}
