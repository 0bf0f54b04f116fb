package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptforge/backend/internal/models"
)

var conn *gorm.DB

func Init(path string) error {
	var err error
	conn, err = gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return Migrate(conn)
}

// Migrate runs AutoMigrate plus the composite indexes GORM can't express in
// struct tags. Shared with tests that open their own databases.
func Migrate(g *gorm.DB) error {
	if err := g.AutoMigrate(
		&models.Category{},
		&models.Question{},
		&models.Option{},
		&models.PromptLine{},
		&models.Answer{},
		&models.GptInteraction{},
		&models.AnswerTemplate{},
		&models.Product{},
		&models.ProductCategory{},
		&models.PromoCode{},
		&models.Payment{},
		&models.PaymentCategory{},
		&models.Purchase{},
		&models.PurchaseCategory{},
	); err != nil {
		return err
	}

	// One placeholder slot per category position; one scan path per
	// (user, question) answer slot.
	g.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_question_position ON questions(category_id, order_index)")
	g.Exec("CREATE INDEX IF NOT EXISTS idx_answers_slot  ON answers(user_id, question_id)")
	g.Exec("CREATE INDEX IF NOT EXISTS idx_prompt_order  ON prompt_lines(category_id, order_index)")
	g.Exec("CREATE INDEX IF NOT EXISTS idx_promo_product ON promo_codes(product_id, code)")
	return nil
}

func Conn() *gorm.DB {
	return conn
}
