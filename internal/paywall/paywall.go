// Package paywall decides whether a user may invoke generation for a
// category, and maintains the purchase counters that gate it.
package paywall

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/models"
)

type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Authorize finds a live purchase granting the user access to the category.
// Evaluated fresh on every gated request; nothing is cached. A purchase
// qualifies when it is unexpired, has uses left (or is unlimited), and its
// product's fixed category set or its own chosen set contains the category
// or the category's parent.
func (e *Engine) Authorize(userID, categoryID string) (*models.Purchase, error) {
	var category models.Category
	if err := e.db.First(&category, "id = ?", categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "category not found")
		}
		return nil, err
	}
	ids := []string{category.ID}
	if category.ParentID != nil {
		ids = append(ids, *category.ParentID)
	}

	var purchase models.Purchase
	err := e.db.
		Where("user_id = ?", userID).
		Where("expiration_time IS NULL OR expiration_time > ?", time.Now()).
		Where("remaining_uses IS NULL OR remaining_uses > 0").
		Where(`product_id IN (SELECT product_id FROM product_categories WHERE category_id IN ?)
			OR id IN (SELECT purchase_id FROM purchase_categories WHERE category_id IN ?)`, ids, ids).
		Order("created_at asc, id asc").
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.AccessDenied, "Access denied")
		}
		return nil, err
	}
	return &purchase, nil
}

// Consume decrements the purchase's remaining-uses counter by units inside
// the caller's transaction. Unlimited purchases (nil counter) are untouched.
// The decrement is a conditional UPDATE, never read-then-write: if another
// request drained the counter first, zero rows match and the caller's whole
// transaction is rolled back with AccessDenied, so the counter can never go
// below zero.
func (e *Engine) Consume(tx *gorm.DB, purchase *models.Purchase, units int) error {
	if purchase.RemainingUses == nil {
		return nil
	}
	res := tx.Model(&models.Purchase{}).
		Where("id = ? AND remaining_uses >= ?", purchase.ID, units).
		Update("remaining_uses", gorm.Expr("remaining_uses - ?", units))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.AccessDenied, "Access denied")
	}
	return nil
}

// Price returns the product's price after an optional promo code, applied in
// fixed order: the absolute discount first (floored at zero), the percentage
// second.
func (e *Engine) Price(productID string, promoCode *string) (int, error) {
	product, err := e.Product(productID)
	if err != nil {
		return 0, err
	}
	if promoCode == nil {
		return product.Price, nil
	}

	var promo models.PromoCode
	if err := e.db.Where("product_id = ? AND code = ?", productID, *promoCode).
		First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.New(apperr.NotFound, "promo_code not found")
		}
		return 0, err
	}
	return ApplyPromo(product.Price, &promo), nil
}

// ApplyPromo applies a promo code to a price: absolute first, percent second,
// never below zero.
func ApplyPromo(price int, promo *models.PromoCode) int {
	if promo == nil {
		return price
	}
	if promo.DiscountAbsolute != nil {
		price -= *promo.DiscountAbsolute
		if price < 0 {
			price = 0
		}
	}
	if promo.DiscountPercent != nil {
		price = price * (100 - *promo.DiscountPercent) / 100
	}
	return price
}

func (e *Engine) Product(productID string) (*models.Product, error) {
	var product models.Product
	if err := e.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

// ProductView is a storefront product with the category ids it unlocks.
type ProductView struct {
	Product     models.Product
	CategoryIDs []string
}

// Products lists active products cheapest-first with their fixed category
// sets. The internal "free" product is hidden from the storefront.
func (e *Engine) Products() ([]ProductView, error) {
	var products []models.Product
	if err := e.db.Where("active = ?", true).
		Order("price asc, id asc").Find(&products).Error; err != nil {
		return nil, err
	}

	var links []models.ProductCategory
	if err := e.db.Order("category_id asc").Find(&links).Error; err != nil {
		return nil, err
	}
	byProduct := make(map[string][]string)
	for _, l := range links {
		byProduct[l.ProductID] = append(byProduct[l.ProductID], l.CategoryID)
	}

	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		if p.Title == "free" {
			continue
		}
		out = append(out, ProductView{Product: p, CategoryIDs: byProduct[p.ID]})
	}
	return out, nil
}
