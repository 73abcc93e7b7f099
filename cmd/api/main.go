package main

import (
	"log"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// .envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := gormDB.AutoMigrate(
		&model.Cart{},
		&model.CartItem{},
		&model.Product{},
	); err != nil {
		log.Fatal(err)
	}

	//devだけ動作確認用の商品を入れる
	if cfg.GoEnv == "dev" {
		if err := seedProducts(gormDB); err != nil {
			log.Fatal(err)
		}
	}

	//Repository（GORM実装）生成
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)

	//Handler生成
	cartH := handler.NewCartHandler(cartUC)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := server.Start(addr, cfg, cartH); err != nil {
		log.Fatal(err)
	}
}

// 商品が1件も無いときだけ投入する
func seedProducts(gormDB *gorm.DB) error {
	var count int64
	if err := gormDB.Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []model.Product{
		{Ref: uuid.NewString(), Name: "Organic Tomatoes 1kg", Price: 450, ShopName: "Green Valley Farm", IsActive: true},
		{Ref: uuid.NewString(), Name: "Brown Eggs 12pc", Price: 320, ShopName: "Sunrise Poultry", IsActive: true},
		{Ref: uuid.NewString(), Name: "Raw Honey 500g", Price: 980, ShopName: "Hillside Apiary", IsActive: true},
	}

	return gormDB.Create(&products).Error
}
