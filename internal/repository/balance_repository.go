package repository

import (
	"errors"
	"strings"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// BalanceRepository 余额流水与充值记录数据访问接口
type BalanceRepository interface {
	CreateTransaction(txn *models.BalanceTransaction) error
	GetTransactionByReference(reference string) (*models.BalanceTransaction, error)
	ListTransactions(filter BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error)
	CreateDeposit(deposit *models.Deposit) error
	GetDepositByID(id uint) (*models.Deposit, error)
	GetDepositByReference(reference string) (*models.Deposit, error)
	ListDepositsByUser(userID uint, page, pageSize int) ([]models.Deposit, int64, error)
	WithTx(tx *gorm.DB) *GormBalanceRepository
}

// GormBalanceRepository GORM 实现
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository 创建余额仓储
func NewBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBalanceRepository) WithTx(tx *gorm.DB) *GormBalanceRepository {
	if tx == nil {
		return r
	}
	return &GormBalanceRepository{db: tx}
}

// CreateTransaction 创建余额流水
func (r *GormBalanceRepository) CreateTransaction(txn *models.BalanceTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByReference 按参考号获取流水
func (r *GormBalanceRepository) GetTransactionByReference(reference string) (*models.BalanceTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.BalanceTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询余额流水
func (r *GormBalanceRepository) ListTransactions(filter BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error) {
	query := r.db.Model(&models.BalanceTransaction{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.SaleID != 0 {
		query = query.Where("sale_id = ?", filter.SaleID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.BalanceTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// CreateDeposit 创建充值记录
func (r *GormBalanceRepository) CreateDeposit(deposit *models.Deposit) error {
	return r.db.Create(deposit).Error
}

// GetDepositByID 根据 ID 获取充值记录
func (r *GormBalanceRepository) GetDepositByID(id uint) (*models.Deposit, error) {
	if id == 0 {
		return nil, nil
	}
	var deposit models.Deposit
	if err := r.db.First(&deposit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deposit, nil
}

// GetDepositByReference 按参考号获取充值记录
func (r *GormBalanceRepository) GetDepositByReference(reference string) (*models.Deposit, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var deposit models.Deposit
	if err := r.db.Where("reference = ?", reference).First(&deposit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deposit, nil
}

// ListDepositsByUser 分页查询用户充值记录
func (r *GormBalanceRepository) ListDepositsByUser(userID uint, page, pageSize int) ([]models.Deposit, int64, error) {
	query := r.db.Model(&models.Deposit{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var deposits []models.Deposit
	if err := query.Order("id desc").Find(&deposits).Error; err != nil {
		return nil, 0, err
	}
	return deposits, total, nil
}
