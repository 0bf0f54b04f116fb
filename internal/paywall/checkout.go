package paywall

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/logging"
	"github.com/promptforge/backend/internal/models"
	"github.com/promptforge/backend/internal/payment"
)

// EventSucceeded is the provider callback event that converts a Payment into
// a Purchase. Every other event is acknowledged and ignored.
const EventSucceeded = "payment.succeeded"

// Checkout opens provider payments and converts the provider's success
// callbacks into purchases.
type Checkout struct {
	db       *gorm.DB
	engine   *Engine
	client   payment.Client
	networks []netip.Prefix
	log      *logging.Logger
}

func NewCheckout(db *gorm.DB, client payment.Client, networks []netip.Prefix, log *logging.Logger) *Checkout {
	return &Checkout{
		db:       db,
		engine:   NewEngine(db),
		client:   client,
		networks: networks,
		log:      log.With("service", "checkout"),
	}
}

// CheckoutRequest is a user's intent to buy productID. CategoryIDs is the
// chosen unlock set, only for products with CategoriesSize; ExpandProductID
// names the product whose purchase a top-up product tops up.
type CheckoutRequest struct {
	UserID          string
	ProductID       string
	PromoCode       *string
	CategoryIDs     []string
	ExpandProductID *string
}

// CreateURL validates the request, opens a payment with the provider, and
// records the in-flight Payment. All preconditions are checked before the
// provider is contacted.
func (c *Checkout) CreateURL(ctx context.Context, req CheckoutRequest) (string, error) {
	product, err := c.engine.Product(req.ProductID)
	if err != nil {
		return "", err
	}
	if !product.Active {
		return "", apperr.New(apperr.NotFound, "product not found")
	}

	if product.CategoriesSize != nil {
		if len(req.CategoryIDs) != *product.CategoriesSize {
			return "", apperr.New(apperr.Validation, "invalid number of categories")
		}
		var n int64
		if err := c.db.Model(&models.Category{}).
			Where("id IN ?", req.CategoryIDs).Count(&n).Error; err != nil {
			return "", err
		}
		if int(n) != len(req.CategoryIDs) {
			return "", apperr.New(apperr.NotFound, "category not found")
		}
	}

	if product.Expanding && req.ExpandProductID == nil {
		return "", apperr.New(apperr.Validation, "expanding product requires a product to expand")
	}

	price, err := c.engine.Price(req.ProductID, req.PromoCode)
	if err != nil {
		return "", err
	}

	checkout, err := c.client.CreateCheckout(ctx, price, "RUB", product.ReturnURL, product.Description)
	if err != nil {
		return "", err
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Payment{
			ID:                checkout.ProviderID,
			UserID:            req.UserID,
			ProductID:         req.ProductID,
			ProductToExpandID: req.ExpandProductID,
		}).Error; err != nil {
			return err
		}
		for _, categoryID := range req.CategoryIDs {
			if err := tx.Create(&models.PaymentCategory{
				PaymentID:  checkout.ProviderID,
				CategoryID: categoryID,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Info("checkout opened", "payment_id", checkout.ProviderID, "product_id", req.ProductID, "price", price)
	return checkout.RedirectURL, nil
}

// Confirm handles the provider's callback. Only sources inside the provider
// network allow-list are accepted. Conversion is idempotent: the Payment row
// is deleted in the same transaction that creates the Purchase, so a
// redelivered callback finds no Payment and becomes a no-op.
func (c *Checkout) Confirm(source netip.Addr, event, providerPaymentID string) error {
	if !c.fromProvider(source) {
		return apperr.New(apperr.Forbidden, "this endpoint is only for the payment provider")
	}
	if event != EventSucceeded {
		return nil
	}

	return c.db.Transaction(func(tx *gorm.DB) error {
		var pay models.Payment
		if err := tx.First(&pay, "id = ?", providerPaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Already converted (or never ours): acknowledged as a no-op.
				return nil
			}
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", pay.ProductID).Error; err != nil {
			return err
		}

		if pay.ProductToExpandID != nil {
			if err := c.expand(tx, pay, product); err != nil {
				return err
			}
		} else if err := c.convert(tx, pay, product); err != nil {
			return err
		}

		if err := tx.Where("payment_id = ?", pay.ID).
			Delete(&models.PaymentCategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Payment{}, "id = ?", pay.ID).Error
	})
}

func (c *Checkout) convert(tx *gorm.DB, pay models.Payment, product models.Product) error {
	purchase := models.Purchase{
		ID:            uuid.NewString(),
		UserID:        pay.UserID,
		ProductID:     pay.ProductID,
		RemainingUses: copyInt(product.UsageCount),
	}
	if product.DurationDays != nil {
		t := time.Now().Add(time.Duration(*product.DurationDays) * 24 * time.Hour)
		purchase.ExpirationTime = &t
	}
	if err := tx.Create(&purchase).Error; err != nil {
		return err
	}

	var chosen []models.PaymentCategory
	if err := tx.Where("payment_id = ?", pay.ID).Find(&chosen).Error; err != nil {
		return err
	}
	for _, pc := range chosen {
		if err := tx.Create(&models.PurchaseCategory{
			PurchaseID: purchase.ID,
			CategoryID: pc.CategoryID,
		}).Error; err != nil {
			return err
		}
	}

	c.log.Info("payment converted", "payment_id", pay.ID, "purchase_id", purchase.ID)
	return nil
}

// expand adds the bought uses to the user's existing purchase of the target
// product instead of creating a new entitlement. With no existing purchase
// to top up, a fresh one is created for the target product.
func (c *Checkout) expand(tx *gorm.DB, pay models.Payment, product models.Product) error {
	var target models.Purchase
	err := tx.Where("user_id = ? AND product_id = ?", pay.UserID, *pay.ProductToExpandID).
		Order("created_at desc, id desc").First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pay.ProductID = *pay.ProductToExpandID
		return c.convert(tx, pay, product)
	}
	if err != nil {
		return err
	}

	if product.UsageCount != nil && target.RemainingUses != nil {
		if err := tx.Model(&models.Purchase{}).
			Where("id = ?", target.ID).
			Update("remaining_uses", gorm.Expr("remaining_uses + ?", *product.UsageCount)).Error; err != nil {
			return err
		}
	}
	c.log.Info("purchase expanded", "payment_id", pay.ID, "purchase_id", target.ID)
	return nil
}

func (c *Checkout) fromProvider(source netip.Addr) bool {
	for _, network := range c.networks {
		if network.Contains(source) {
			return true
		}
	}
	return false
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
