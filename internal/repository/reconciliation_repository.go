package repository

import (
	"errors"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// ReconciliationRepository 人工对账数据访问接口
type ReconciliationRepository interface {
	Create(item *models.Reconciliation) error
	Update(item *models.Reconciliation) error
	GetByIDForUpdate(id uint) (*models.Reconciliation, error)
	List(filter ReconciliationListFilter) ([]models.Reconciliation, int64, error)
	WithTx(tx *gorm.DB) *GormReconciliationRepository
}

// GormReconciliationRepository GORM 实现
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository 创建人工对账仓库
func NewReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReconciliationRepository) WithTx(tx *gorm.DB) *GormReconciliationRepository {
	if tx == nil {
		return r
	}
	return &GormReconciliationRepository{db: tx}
}

// Create 创建对账记录
func (r *GormReconciliationRepository) Create(item *models.Reconciliation) error {
	return r.db.Create(item).Error
}

// Update 更新对账记录
func (r *GormReconciliationRepository) Update(item *models.Reconciliation) error {
	return r.db.Save(item).Error
}

// GetByIDForUpdate 加锁获取对账记录
func (r *GormReconciliationRepository) GetByIDForUpdate(id uint) (*models.Reconciliation, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.Reconciliation
	if err := forUpdate(r.db).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List 分页查询对账记录
func (r *GormReconciliationRepository) List(filter ReconciliationListFilter) ([]models.Reconciliation, int64, error) {
	query := r.db.Model(&models.Reconciliation{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var items []models.Reconciliation
	if err := query.Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
