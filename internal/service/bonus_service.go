package service

import (
	"context"
	"time"

	"github.com/unitshop/internal/cache"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/shopspring/decimal"
)

const bonusSnapshotCacheKey = "bonus:enabled"

// BestBonus 在生效规则中选出门槛严格小于充值金额且门槛最高的一条
//
// 充值金额恰好等于门槛时不命中该档。门槛相同取比例更高者，再取 ID 更小者。
func BestBonus(bonuses []models.TopUpBonus, amount decimal.Decimal, now time.Time) (*models.TopUpBonus, bool) {
	var best *models.TopUpBonus
	for i := range bonuses {
		candidate := &bonuses[i]
		if !candidate.ActiveAt(now) {
			continue
		}
		if !candidate.MinAmountThreshold.Decimal.LessThan(amount) {
			continue
		}
		if best == nil || betterBonus(candidate, best) {
			best = candidate
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func betterBonus(candidate, current *models.TopUpBonus) bool {
	cmp := candidate.MinAmountThreshold.Decimal.Cmp(current.MinAmountThreshold.Decimal)
	if cmp != 0 {
		return cmp > 0
	}
	cmp = candidate.BonusPercentage.Cmp(current.BonusPercentage)
	if cmp != 0 {
		return cmp > 0
	}
	return candidate.ID < current.ID
}

// BonusAmount 计算赠送金额（保留 2 位小数）
func BonusAmount(amount decimal.Decimal, bonus *models.TopUpBonus) decimal.Decimal {
	if bonus == nil || !amount.IsPositive() || !bonus.BonusPercentage.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(bonus.BonusPercentage).Div(decimal.NewFromInt(100)).Round(2)
}

// CreateBonusInput 创建充值赠送规则输入
type CreateBonusInput struct {
	MinAmountThreshold decimal.Decimal
	BonusPercentage    decimal.Decimal
	StartsAt           *time.Time
	ExpiresAt          *time.Time
}

// BonusService 充值赠送规则服务
type BonusService struct {
	repo     repository.TopUpBonusRepository
	cacheTTL time.Duration
	now      func() time.Time
}

// NewBonusService 创建充值赠送服务
func NewBonusService(repo repository.TopUpBonusRepository, cacheTTL time.Duration) *BonusService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &BonusService{
		repo:     repo,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Resolve 按充值金额匹配赠送规则
func (s *BonusService) Resolve(ctx context.Context, amount decimal.Decimal) (*models.TopUpBonus, error) {
	now := s.now()
	bonuses, err := s.enabledSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	best, ok := BestBonus(bonuses, amount, now)
	if !ok {
		return nil, nil
	}
	picked := *best
	return &picked, nil
}

// enabledSnapshot 读取未停用规则的快照，缓存不可用时回源数据库
//
// 快照包含尚未开始或已过期的规则，生效时间窗在匹配时按当前时间判断。
func (s *BonusService) enabledSnapshot(ctx context.Context) ([]models.TopUpBonus, error) {
	var cached []models.TopUpBonus
	hit, err := cache.GetJSON(ctx, bonusSnapshotCacheKey, &cached)
	if err != nil {
		logger.Warnw("bonus_snapshot_cache_get_failed", "error", err)
	}
	if hit {
		return cached, nil
	}
	bonuses, err := s.repo.ListEnabled()
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, bonusSnapshotCacheKey, bonuses, s.cacheTTL); err != nil {
		logger.Warnw("bonus_snapshot_cache_set_failed", "error", err)
	}
	return bonuses, nil
}

// Create 创建规则
func (s *BonusService) Create(ctx context.Context, input CreateBonusInput) (*models.TopUpBonus, error) {
	if input.MinAmountThreshold.IsNegative() {
		return nil, ErrBonusInvalid
	}
	if !input.BonusPercentage.IsPositive() || input.BonusPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrBonusInvalid
	}
	if input.StartsAt != nil && input.ExpiresAt != nil && input.ExpiresAt.Before(*input.StartsAt) {
		return nil, ErrBonusInvalid
	}
	bonus := &models.TopUpBonus{
		MinAmountThreshold: models.NewMoneyFromDecimal(input.MinAmountThreshold),
		BonusPercentage:    input.BonusPercentage.Round(2),
		StartsAt:           input.StartsAt,
		ExpiresAt:          input.ExpiresAt,
		IsActive:           true,
	}
	if err := s.repo.Create(bonus); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	logger.Infow("top_up_bonus_created",
		"bonus_id", bonus.ID,
		"threshold", bonus.MinAmountThreshold.String(),
		"percentage", bonus.BonusPercentage.String(),
	)
	return bonus, nil
}

// List 获取全部规则
func (s *BonusService) List() ([]models.TopUpBonus, error) {
	return s.repo.List()
}

// Deactivate 停用规则
func (s *BonusService) Deactivate(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrBonusNotFound
	}
	affected, err := s.repo.Deactivate(id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBonusNotFound
	}
	s.invalidate(ctx)
	logger.Infow("top_up_bonus_deactivated", "bonus_id", id)
	return nil
}

func (s *BonusService) invalidate(ctx context.Context) {
	if err := cache.Del(ctx, bonusSnapshotCacheKey); err != nil {
		logger.Warnw("bonus_snapshot_cache_del_failed", "error", err)
	}
}
