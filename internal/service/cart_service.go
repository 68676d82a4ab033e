package service

import (
	"sort"
	"time"

	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"gorm.io/gorm"
)

// CartItemDetail 购物车项详情（用于响应）
type CartItemDetail struct {
	ID        uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice models.Money    `json:"unit_price"`
	LineTotal models.Money    `json:"line_total"`
	Product   *models.Product `json:"product"`
}

// CartService 购物车预留服务
//
// 预留数量直接从商品库存计数中扣除，改量与释放反向回补。
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	ledger      *StockLedger
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, ledger *StockLedger) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		ledger:      ledger,
	}
}

// ListByUser 获取用户购物车
func (s *CartService) ListByUser(userID uint) ([]CartItemDetail, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	details := make([]CartItemDetail, 0, len(items))
	for _, item := range items {
		detail := CartItemDetail{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   item.Product,
		}
		if item.Product != nil {
			detail.UnitPrice = item.Product.PriceAmount
			detail.LineTotal = item.Product.PriceAmount.MulQuantity(item.Quantity)
		}
		details = append(details, detail)
	}
	return details, nil
}

// Reserve 将商品加入购物车并预留库存
//
// 已有同商品预留时合并数量，合并后的数量同样需要满足限购。
func (s *CartService) Reserve(userID, productID uint, quantity int) (*models.CartProduct, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	if quantity <= 0 {
		return nil, ErrQuantityOutOfRange
	}
	var result *models.CartProduct
	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.WithTx(tx).GetByIDForUpdate(productID)
		if err != nil {
			return err
		}
		if product == nil || !product.CanBePurchased {
			return ErrProductNotAvailable
		}

		cartRepo := s.cartRepo.WithTx(tx)
		existing, err := cartRepo.GetByUserAndProductForUpdate(userID, productID)
		if err != nil {
			return err
		}
		total := quantity
		if existing != nil {
			total += existing.Quantity
		}
		if !product.QuantityInRange(total) {
			return ErrQuantityOutOfRange
		}
		if quantity > product.StockCount {
			return ErrInsufficientStock
		}

		if existing != nil {
			if err := cartRepo.UpdateQuantity(existing.ID, total); err != nil {
				return err
			}
			existing.Quantity = total
			result = existing
		} else {
			item := &models.CartProduct{
				UserID:    userID,
				ProductID: productID,
				Quantity:  quantity,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := cartRepo.Create(item); err != nil {
				return err
			}
			result = item
		}
		return s.ledger.Decrement(tx, productID, quantity)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("cart_reserved", "user_id", userID, "product_id", productID, "quantity", quantity, "cart_id", result.ID)
	return result, nil
}

// ChangeQuantity 修改预留数量，读取与写入在同一事务内完成
//
// 新数量为 0 时等同于释放。
func (s *CartService) ChangeQuantity(userID, cartID uint, newQuantity int) (*models.CartProduct, error) {
	if newQuantity < 0 {
		return nil, ErrQuantityOutOfRange
	}
	if newQuantity == 0 {
		return nil, s.Release(userID, cartID)
	}
	var result *models.CartProduct
	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		item, product, err := s.lockLine(tx, userID, cartID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotAvailable
		}
		if !product.QuantityInRange(newQuantity) {
			return ErrQuantityOutOfRange
		}

		delta := newQuantity - item.Quantity
		switch {
		case delta > 0:
			if delta > product.StockCount {
				return ErrInsufficientStock
			}
			if err := s.ledger.Decrement(tx, product.ID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := s.ledger.Increment(tx, product.ID, -delta); err != nil {
				return err
			}
		default:
			result = item
			return nil
		}
		if err := s.cartRepo.WithTx(tx).UpdateQuantity(item.ID, newQuantity); err != nil {
			return err
		}
		item.Quantity = newQuantity
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("cart_quantity_changed", "user_id", userID, "cart_id", cartID, "quantity", newQuantity)
	return result, nil
}

// Release 删除预留并回补库存
func (s *CartService) Release(userID, cartID uint) error {
	return s.productRepo.Transaction(func(tx *gorm.DB) error {
		item, _, err := s.lockLine(tx, userID, cartID)
		if err != nil {
			return err
		}
		return s.releaseItem(tx, item)
	})
}

// ReleaseAll 清空用户购物车并回补全部库存
func (s *CartService) ReleaseAll(userID uint) (int, error) {
	released := 0
	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		peek, err := cartRepo.ListByUser(userID)
		if err != nil {
			return err
		}
		productIDs := make([]uint, 0, len(peek))
		seen := make(map[uint]bool, len(peek))
		for _, item := range peek {
			if !seen[item.ProductID] {
				seen[item.ProductID] = true
				productIDs = append(productIDs, item.ProductID)
			}
		}
		// 多个商品按 id 升序加锁
		sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })
		productRepo := s.productRepo.WithTx(tx)
		for _, productID := range productIDs {
			if _, err := productRepo.GetByIDForUpdate(productID); err != nil {
				return err
			}
		}
		items, err := cartRepo.ListByUserForUpdate(userID)
		if err != nil {
			return err
		}
		for i := range items {
			if err := s.releaseItem(tx, &items[i]); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// lockLine 先锁商品行再锁预留行，与 Reserve 和结算出库的加锁顺序一致
//
// 商品已删除时 product 为 nil。
func (s *CartService) lockLine(tx *gorm.DB, userID, cartID uint) (*models.CartProduct, *models.Product, error) {
	cartRepo := s.cartRepo.WithTx(tx)
	peek, err := cartRepo.GetByUserAndID(userID, cartID)
	if err != nil {
		return nil, nil, err
	}
	if peek == nil {
		return nil, nil, ErrCartItemNotFound
	}
	product, err := s.productRepo.WithTx(tx).GetByIDForUpdate(peek.ProductID)
	if err != nil {
		return nil, nil, err
	}
	item, err := cartRepo.GetByUserAndIDForUpdate(userID, cartID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.ProductID != peek.ProductID {
		return nil, nil, ErrCartItemNotFound
	}
	return item, product, nil
}

func (s *CartService) releaseItem(tx *gorm.DB, item *models.CartProduct) error {
	affected, err := s.cartRepo.WithTx(tx).DeleteByID(item.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	if item.Quantity <= 0 {
		return nil
	}
	if err := s.ledger.Increment(tx, item.ProductID, item.Quantity); err != nil {
		return err
	}
	logger.Infow("cart_released", "user_id", item.UserID, "cart_id", item.ID, "product_id", item.ProductID, "quantity", item.Quantity)
	return nil
}
