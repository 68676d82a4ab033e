package repository

import (
	"errors"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// TopUpBonusRepository 充值赠送规则数据访问接口
type TopUpBonusRepository interface {
	Create(bonus *models.TopUpBonus) error
	GetByID(id uint) (*models.TopUpBonus, error)
	List() ([]models.TopUpBonus, error)
	ListEnabled() ([]models.TopUpBonus, error)
	Deactivate(id uint) (int64, error)
}

// GormTopUpBonusRepository GORM 实现
type GormTopUpBonusRepository struct {
	db *gorm.DB
}

// NewTopUpBonusRepository 创建充值赠送规则仓库
func NewTopUpBonusRepository(db *gorm.DB) *GormTopUpBonusRepository {
	return &GormTopUpBonusRepository{db: db}
}

// Create 创建规则
func (r *GormTopUpBonusRepository) Create(bonus *models.TopUpBonus) error {
	return r.db.Create(bonus).Error
}

// GetByID 根据 ID 获取规则
func (r *GormTopUpBonusRepository) GetByID(id uint) (*models.TopUpBonus, error) {
	var bonus models.TopUpBonus
	if err := r.db.First(&bonus, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bonus, nil
}

// List 获取全部规则
func (r *GormTopUpBonusRepository) List() ([]models.TopUpBonus, error) {
	var bonuses []models.TopUpBonus
	if err := r.db.Order("min_amount_threshold asc, id asc").Find(&bonuses).Error; err != nil {
		return nil, err
	}
	return bonuses, nil
}

// ListEnabled 获取未停用的规则，生效时间窗由调用方判断
func (r *GormTopUpBonusRepository) ListEnabled() ([]models.TopUpBonus, error) {
	var bonuses []models.TopUpBonus
	if err := r.db.
		Where("is_active = ?", true).
		Order("min_amount_threshold asc, id asc").
		Find(&bonuses).Error; err != nil {
		return nil, err
	}
	return bonuses, nil
}

// Deactivate 停用规则
func (r *GormTopUpBonusRepository) Deactivate(id uint) (int64, error) {
	result := r.db.Model(&models.TopUpBonus{}).Where("id = ?", id).Update("is_active", false)
	return result.RowsAffected, result.Error
}
