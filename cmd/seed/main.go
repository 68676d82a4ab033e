package main

import (
	"fmt"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	Category    string
	Name        string
	Description string
	Price       string
	MaxQuantity int
	Units       int
	UnitType    string
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Database.DebugSQL); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	categoryIDs := map[string]uint{}
	for i, name := range []string{"Accounts", "License Keys", "Files"} {
		var category models.Category
		if err := models.DB.Where("name = ?", name).First(&category).Error; err != nil {
			category = models.Category{Name: name, SortOrder: 100 - i*10}
			if err := models.DB.Create(&category).Error; err != nil {
				stdLog.Fatalf("Failed to create category %s: %v", name, err)
			}
			stdLog.Printf("Created category: %s", name)
		}
		categoryIDs[name] = category.ID
	}

	productRepo := repository.NewProductRepository(models.DB)
	unitRepo := repository.NewProductUnitRepository(models.DB)
	cartRepo := repository.NewCartRepository(models.DB)
	ledger := service.NewStockLedger(productRepo, unitRepo, cartRepo)
	pool := service.NewUnitPool(productRepo, unitRepo, cartRepo, ledger)
	products := service.NewProductService(productRepo)

	seeds := []seedProduct{
		{Category: "Accounts", Name: "Streaming account (1 month)", Description: "Shared login, delivered instantly", Price: "3.50", MaxQuantity: 5, Units: 20, UnitType: constants.UnitTypeText},
		{Category: "License Keys", Name: "Office suite key", Description: "Retail activation key", Price: "12.00", MaxQuantity: 2, Units: 10, UnitType: constants.UnitTypeText},
		{Category: "Files", Name: "Design asset pack", Description: "Download link delivered after purchase", Price: "7.99", MaxQuantity: 1, Units: 5, UnitType: constants.UnitTypeFile},
	}
	for _, seed := range seeds {
		var existing models.Product
		if err := models.DB.Where("name = ?", seed.Name).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", seed.Name)
			continue
		}
		minQuantity := 1
		maxQuantity := seed.MaxQuantity
		product, err := products.Create(service.ProductInput{
			CategoryID:       categoryIDs[seed.Category],
			Name:             seed.Name,
			Description:      seed.Description,
			Price:            decimal.RequireFromString(seed.Price),
			MinOrderQuantity: &minQuantity,
			MaxOrderQuantity: &maxQuantity,
			CanBePurchased:   true,
		})
		if err != nil {
			stdLog.Printf("Failed to create product %s: %v", seed.Name, err)
			continue
		}
		payloads := make([]service.UnitPayload, 0, seed.Units)
		for i := 1; i <= seed.Units; i++ {
			content := fmt.Sprintf("SEED-%d-%04d", product.ID, i)
			if seed.UnitType == constants.UnitTypeFile {
				content = fmt.Sprintf("files/seed/%d/%04d.zip", product.ID, i)
			}
			payloads = append(payloads, service.UnitPayload{Content: content, Type: seed.UnitType})
		}
		imported, err := pool.Import(product.ID, payloads)
		if err != nil {
			stdLog.Printf("Failed to import units for %s: %v", seed.Name, err)
			continue
		}
		stdLog.Printf("Created product: %s (%d units)", seed.Name, imported)
	}

	var bonusCount int64
	models.DB.Model(&models.TopUpBonus{}).Count(&bonusCount)
	if bonusCount == 0 {
		bonuses := []models.TopUpBonus{
			{MinAmountThreshold: models.NewMoneyFromDecimal(decimal.NewFromInt(50)), BonusPercentage: decimal.NewFromInt(5), IsActive: true},
			{MinAmountThreshold: models.NewMoneyFromDecimal(decimal.NewFromInt(200)), BonusPercentage: decimal.NewFromInt(10), IsActive: true},
		}
		if err := models.DB.Create(&bonuses).Error; err != nil {
			stdLog.Printf("Failed to create top-up bonuses: %v", err)
		} else {
			stdLog.Printf("Created %d top-up bonuses", len(bonuses))
		}
	}

	stdLog.Printf("Seed completed")
}
