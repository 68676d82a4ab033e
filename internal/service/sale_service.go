package service

import (
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"
)

// SaleDetail 销售记录与交付的单元
type SaleDetail struct {
	Sale  *models.Sale         `json:"sale"`
	Units []models.ProductUnit `json:"units"`
}

// SaleService 销售记录查询
type SaleService struct {
	saleRepo   repository.SaleRepository
	pool       *UnitPool
	chargeRepo repository.ChargeRepository
}

// NewSaleService 创建销售记录服务
func NewSaleService(saleRepo repository.SaleRepository, pool *UnitPool, chargeRepo repository.ChargeRepository) *SaleService {
	return &SaleService{
		saleRepo:   saleRepo,
		pool:       pool,
		chargeRepo: chargeRepo,
	}
}

// List 分页查询
func (s *SaleService) List(filter repository.SaleListFilter) ([]models.Sale, int64, error) {
	return s.saleRepo.List(filter)
}

// GetForUser 获取用户自己的销售记录及交付单元
func (s *SaleService) GetForUser(userID, saleID uint) (*SaleDetail, error) {
	sale, err := s.saleRepo.GetByUserAndID(userID, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return s.detail(sale)
}

// GetForAdmin 管理端查看销售记录
func (s *SaleService) GetForAdmin(saleID uint) (*SaleDetail, error) {
	sale, err := s.saleRepo.GetByID(saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return s.detail(sale)
}

func (s *SaleService) detail(sale *models.Sale) (*SaleDetail, error) {
	units, err := s.pool.ListBySale(sale.ID)
	if err != nil {
		return nil, err
	}
	return &SaleDetail{Sale: sale, Units: units}, nil
}

// GetChargeForUser 查询用户的网关扣款状态（客户端轮询结算进度）
func (s *SaleService) GetChargeForUser(userID uint, chargeNo string) (*models.PaymentCharge, error) {
	charge, err := s.chargeRepo.GetByUserAndChargeNo(userID, chargeNo)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, ErrChargeNotFound
	}
	return charge, nil
}
