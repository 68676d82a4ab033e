package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// ChargeRepository 网关扣款记录数据访问接口
type ChargeRepository interface {
	Create(charge *models.PaymentCharge) error
	Update(charge *models.PaymentCharge) error
	GetByID(id uint) (*models.PaymentCharge, error)
	GetByChargeNo(chargeNo string) (*models.PaymentCharge, error)
	GetByUserAndChargeNo(userID uint, chargeNo string) (*models.PaymentCharge, error)
	ListStale(statuses []string, before time.Time, afterID uint, limit int) ([]models.PaymentCharge, error)
	UpdateStatusIf(id uint, from []string, updates map[string]interface{}) (bool, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormChargeRepository
}

// GormChargeRepository GORM 实现
type GormChargeRepository struct {
	db *gorm.DB
}

// NewChargeRepository 创建扣款记录仓库
func NewChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormChargeRepository) WithTx(tx *gorm.DB) *GormChargeRepository {
	if tx == nil {
		return r
	}
	return &GormChargeRepository{db: tx}
}

// Transaction 执行事务
func (r *GormChargeRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建扣款记录
func (r *GormChargeRepository) Create(charge *models.PaymentCharge) error {
	return r.db.Create(charge).Error
}

// Update 更新扣款记录
func (r *GormChargeRepository) Update(charge *models.PaymentCharge) error {
	return r.db.Save(charge).Error
}

// GetByID 根据 ID 获取扣款记录
func (r *GormChargeRepository) GetByID(id uint) (*models.PaymentCharge, error) {
	if id == 0 {
		return nil, nil
	}
	var charge models.PaymentCharge
	if err := r.db.First(&charge, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

// GetByChargeNo 根据扣款单号获取记录
func (r *GormChargeRepository) GetByChargeNo(chargeNo string) (*models.PaymentCharge, error) {
	chargeNo = strings.TrimSpace(chargeNo)
	if chargeNo == "" {
		return nil, nil
	}
	var charge models.PaymentCharge
	if err := r.db.Where("charge_no = ?", chargeNo).First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

// GetByUserAndChargeNo 获取用户自己的扣款记录
func (r *GormChargeRepository) GetByUserAndChargeNo(userID uint, chargeNo string) (*models.PaymentCharge, error) {
	chargeNo = strings.TrimSpace(chargeNo)
	if userID == 0 || chargeNo == "" {
		return nil, nil
	}
	var charge models.PaymentCharge
	if err := r.db.Where("user_id = ? AND charge_no = ?", userID, chargeNo).First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

// ListStale 按 id 顺序获取在 before 之前最后更新、仍处于给定状态的扣款
func (r *GormChargeRepository) ListStale(statuses []string, before time.Time, afterID uint, limit int) ([]models.PaymentCharge, error) {
	if len(statuses) == 0 || limit <= 0 {
		return nil, nil
	}
	var charges []models.PaymentCharge
	if err := r.db.Where("status IN ? AND updated_at < ? AND id > ?", statuses, before, afterID).
		Order("id asc").
		Limit(limit).
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

// UpdateStatusIf 仅当扣款仍处于 from 中的状态时更新，返回是否更新成功
func (r *GormChargeRepository) UpdateStatusIf(id uint, from []string, updates map[string]interface{}) (bool, error) {
	if id == 0 || len(from) == 0 || len(updates) == 0 {
		return false, errors.New("invalid charge status update params")
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.PaymentCharge{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
