package repository

import (
	"errors"
	"strings"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByIDForUpdate(id uint) (*models.User, error)
	GetByTelegramID(telegramID int64) (*models.User, error)
	Create(user *models.User) error
	UpdateFields(userID uint, fields map[string]interface{}) error
	List(filter UserListFilter) ([]models.User, int64, error)
	UpdateBalance(userID uint, balance models.Money) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Transaction 执行事务
func (r *GormUserRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDForUpdate 加锁获取用户（余额变更前调用）
func (r *GormUserRepository) GetByIDForUpdate(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := forUpdate(r.db).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByTelegramID 根据 Telegram ID 获取用户
func (r *GormUserRepository) GetByTelegramID(telegramID int64) (*models.User, error) {
	if telegramID == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// UpdateBalance 写入新余额
func (r *GormUserRepository) UpdateBalance(userID uint, balance models.Money) error {
	if userID == 0 {
		return errors.New("invalid user id")
	}
	if balance.IsNegative() {
		return errors.New("balance cannot be negative")
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("balance", balance).Error
}

// UpdateFields 按列更新用户，不触碰余额等未列出的字段
func (r *GormUserRepository) UpdateFields(userID uint, fields map[string]interface{}) error {
	if userID == 0 || len(fields) == 0 {
		return errors.New("invalid user update params")
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error
}

// List 用户列表
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if filter.TelegramID != 0 {
		query = query.Where("telegram_id = ?", filter.TelegramID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"username"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}
	if filter.OnlyBlocked {
		query = query.Where("is_blocked = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var users []models.User
	if err := query.Order("id desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
