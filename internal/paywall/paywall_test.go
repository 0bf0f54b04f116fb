package paywall_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/db"
	"github.com/promptforge/backend/internal/models"
	"github.com/promptforge/backend/internal/paywall"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "paywall.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func intp(v int) *int { return &v }

func seedAccess(t *testing.T, gdb *gorm.DB, userID string, uses *int, expiry *time.Time) (models.Category, models.Purchase) {
	t.Helper()
	cat := models.Category{ID: uuid.NewString(), Title: "cat", OrderIndex: uuid.NewString()}
	require.NoError(t, gdb.Create(&cat).Error)

	product := models.Product{ID: uuid.NewString(), Title: "plan", Description: "d", Price: 100, ReturnURL: "https://app/return"}
	require.NoError(t, gdb.Create(&product).Error)
	require.NoError(t, gdb.Create(&models.ProductCategory{ProductID: product.ID, CategoryID: cat.ID}).Error)

	purchase := models.Purchase{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProductID:      product.ID,
		RemainingUses:  uses,
		ExpirationTime: expiry,
	}
	require.NoError(t, gdb.Create(&purchase).Error)
	return cat, purchase
}

func TestApplyPromo(t *testing.T) {
	promo := &models.PromoCode{DiscountAbsolute: intp(300), DiscountPercent: intp(50)}
	assert.Equal(t, 350, paywall.ApplyPromo(1000, promo))

	assert.Equal(t, 0, paywall.ApplyPromo(100, &models.PromoCode{DiscountAbsolute: intp(500)}))
	assert.Equal(t, 750, paywall.ApplyPromo(1000, &models.PromoCode{DiscountPercent: intp(25)}))
	assert.Equal(t, 1000, paywall.ApplyPromo(1000, nil))
	assert.Equal(t, 1000, paywall.ApplyPromo(1000, &models.PromoCode{}))
}

func TestAuthorizeDeniesWithoutPurchase(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)

	cat := models.Category{ID: uuid.NewString(), Title: "cat", OrderIndex: "1"}
	require.NoError(t, gdb.Create(&cat).Error)

	_, err := engine.Authorize("nobody", cat.ID)
	assert.Equal(t, apperr.AccessDenied, apperr.KindOf(err))
	assert.Equal(t, "Access denied", apperr.MessageOf(err))
}

func TestAuthorizeUnknownCategory(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)

	_, err := engine.Authorize("u1", uuid.NewString())
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestAuthorizeAcceptsLivePurchase(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)
	cat, purchase := seedAccess(t, gdb, "u1", intp(3), nil)

	got, err := engine.Authorize("u1", cat.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, got.ID)

	// Another user's purchase grants nothing.
	_, err = engine.Authorize("u2", cat.ID)
	assert.Equal(t, apperr.AccessDenied, apperr.KindOf(err))
}

func TestAuthorizeFiltersExpired(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)
	past := time.Now().Add(-time.Hour)
	cat, _ := seedAccess(t, gdb, "u1", nil, &past)

	_, err := engine.Authorize("u1", cat.ID)
	assert.Equal(t, apperr.AccessDenied, apperr.KindOf(err))
}

func TestAuthorizeFiltersDrained(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)
	cat, _ := seedAccess(t, gdb, "u1", intp(0), nil)

	_, err := engine.Authorize("u1", cat.ID)
	assert.Equal(t, apperr.AccessDenied, apperr.KindOf(err))
}

func TestAuthorizeMatchesParentCategory(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)
	parent, _ := seedAccess(t, gdb, "u1", nil, nil)

	child := models.Category{ID: uuid.NewString(), Title: "child", OrderIndex: "9.1", ParentID: &parent.ID}
	require.NoError(t, gdb.Create(&child).Error)

	_, err := engine.Authorize("u1", child.ID)
	assert.NoError(t, err)
}

func TestAuthorizeMatchesChosenCategories(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)

	cat := models.Category{ID: uuid.NewString(), Title: "cat", OrderIndex: "1"}
	require.NoError(t, gdb.Create(&cat).Error)
	product := models.Product{ID: uuid.NewString(), Title: "pick", Description: "d", Price: 100, ReturnURL: "u", CategoriesSize: intp(1)}
	require.NoError(t, gdb.Create(&product).Error)

	purchase := models.Purchase{ID: uuid.NewString(), UserID: "u1", ProductID: product.ID}
	require.NoError(t, gdb.Create(&purchase).Error)
	require.NoError(t, gdb.Create(&models.PurchaseCategory{PurchaseID: purchase.ID, CategoryID: cat.ID}).Error)

	got, err := engine.Authorize("u1", cat.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, got.ID)
}

func TestConsumeDecrementsAndDenies(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)
	_, purchase := seedAccess(t, gdb, "u1", intp(2), nil)

	require.NoError(t, engine.Consume(gdb, &purchase, 1))
	require.NoError(t, engine.Consume(gdb, &purchase, 1))

	var after models.Purchase
	require.NoError(t, gdb.First(&after, "id = ?", purchase.ID).Error)
	assert.Equal(t, 0, *after.RemainingUses)

	err := engine.Consume(gdb, &purchase, 1)
	assert.Equal(t, apperr.AccessDenied, apperr.KindOf(err))

	// The failed attempt must not drive the counter negative.
	require.NoError(t, gdb.First(&after, "id = ?", purchase.ID).Error)
	assert.Equal(t, 0, *after.RemainingUses)
}

func TestConsumeUnlimitedIsNoop(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)
	_, purchase := seedAccess(t, gdb, "u1", nil, nil)

	require.NoError(t, engine.Consume(gdb, &purchase, 1))

	var after models.Purchase
	require.NoError(t, gdb.First(&after, "id = ?", purchase.ID).Error)
	assert.Nil(t, after.RemainingUses)
}

func TestPrice(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)

	product := models.Product{ID: uuid.NewString(), Title: "plan", Description: "d", Price: 1000, ReturnURL: "u"}
	require.NoError(t, gdb.Create(&product).Error)
	require.NoError(t, gdb.Create(&models.PromoCode{
		ID: uuid.NewString(), ProductID: product.ID, Code: "SAVE",
		DiscountAbsolute: intp(300), DiscountPercent: intp(50),
	}).Error)

	price, err := engine.Price(product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000, price)

	code := "SAVE"
	price, err = engine.Price(product.ID, &code)
	require.NoError(t, err)
	assert.Equal(t, 350, price)

	bad := "NOPE"
	_, err = engine.Price(product.ID, &bad)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "promo_code not found", apperr.MessageOf(err))
}

func TestProductsStorefront(t *testing.T) {
	gdb := openDB(t)
	engine := paywall.NewEngine(gdb)

	cat := models.Category{ID: uuid.NewString(), Title: "cat", OrderIndex: "1"}
	require.NoError(t, gdb.Create(&cat).Error)

	expensive := models.Product{ID: uuid.NewString(), Title: "pro", Description: "d", Price: 900, ReturnURL: "u"}
	cheap := models.Product{ID: uuid.NewString(), Title: "lite", Description: "d", Price: 100, ReturnURL: "u"}
	free := models.Product{ID: uuid.NewString(), Title: "free", Description: "d", Price: 0, ReturnURL: "u"}
	inactive := models.Product{ID: uuid.NewString(), Title: "old", Description: "d", Price: 50, ReturnURL: "u"}
	for _, p := range []*models.Product{&expensive, &cheap, &free, &inactive} {
		require.NoError(t, gdb.Create(p).Error)
	}
	// The default:true tag makes GORM skip a zero Active on insert.
	require.NoError(t, gdb.Model(&inactive).Update("active", false).Error)
	require.NoError(t, gdb.Create(&models.ProductCategory{ProductID: cheap.ID, CategoryID: cat.ID}).Error)

	views, err := engine.Products()
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "lite", views[0].Product.Title)
	assert.Equal(t, []string{cat.ID}, views[0].CategoryIDs)
	assert.Equal(t, "pro", views[1].Product.Title)
}
