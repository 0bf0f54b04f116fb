package models

import "time"

// Question types. A question's type decides how answers are validated and how
// they resolve into prompt text.
const (
	QuestionText    = "text"
	QuestionNumeric = "numeric"
	QuestionOptions = "options"
)

type Category struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Title       string `gorm:"not null"`
	Description *string
	ParentID    *string `gorm:"index"`

	// Two independent visibility flags: a category can be a main-screen tile,
	// a browsable screen, both, or neither.
	IsMainScreenPresented     bool `gorm:"not null;default:false"`
	IsCategoryScreenPresented bool `gorm:"not null;default:false"`

	// Dotted string, globally unique; lexicographic order is display order.
	OrderIndex string `gorm:"uniqueIndex;not null"`
}

type Question struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	CategoryID string `gorm:"index;not null"`
	Text       string `gorm:"not null"`
	Snippet    *string
	IsRequired bool `gorm:"not null"`

	// 1-based position within the category; templates reference it as {N}.
	// Index 0 is reserved so authors can write {1} for the first question.
	OrderIndex int    `gorm:"not null"`
	Type       string `gorm:"not null;default:text"` // text | numeric | options
}

type Option struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	QuestionID string `gorm:"index;not null"`
	Text       string `gorm:"not null"` // display text
	// Substituted into the generation prompt instead of Text.
	TextToPrompt string `gorm:"not null"`
}

type PromptLine struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	CategoryID string `gorm:"index;not null"`
	Text       string `gorm:"not null"`
	OrderIndex int    `gorm:"not null"`
}

// Answer rows move through three states: unsubmitted (both links nil,
// mutable), consumed by a generation call (InteractionID set, immutable
// history), or part of a saved template snapshot (TemplateID set).
type Answer struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	QuestionID    string  `gorm:"index;not null"`
	UserID        string  `gorm:"index;not null"`
	Value         string  `gorm:"not null"`
	InteractionID *string `gorm:"index"`
	TemplateID    *string `gorm:"index"`
}

type GptInteraction struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID     string    `gorm:"index;not null"`
	HappenedAt time.Time `gorm:"not null"`
	Response   string    `gorm:"not null"`
	IsFavorite bool      `gorm:"not null;default:false"`
}

// AnswerTemplate is a user-saved, reusable answer snapshot for a category,
// distinct from interaction history. Its answers are the rows whose
// TemplateID points here.
type AnswerTemplate struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID string `gorm:"index;not null"`
	Title  string `gorm:"not null"`
}

type Product struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Title       string `gorm:"not null"`
	Description string `gorm:"not null"`
	Price       int    `gorm:"not null"`
	ReturnURL   string `gorm:"not null"`

	// nil = purchase never expires.
	DurationDays *int
	// nil = unlimited uses.
	UsageCount *int
	// When set, the buyer picks exactly this many categories at checkout
	// instead of getting the fixed ProductCategory set.
	CategoriesSize *int
	// Expanding products top up an existing purchase instead of creating one.
	Expanding bool `gorm:"not null;default:false"`
	Active    bool `gorm:"not null;default:true"`
}

// Fixed set of categories a product unlocks.
type ProductCategory struct {
	ProductID  string `gorm:"primaryKey"`
	CategoryID string `gorm:"primaryKey"`
}

type PromoCode struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProductID string `gorm:"index;not null"`
	Code      string `gorm:"index;not null"`

	// Applied in fixed order: absolute first (floored at 0), then percent.
	DiscountAbsolute *int
	DiscountPercent  *int
}

// Payment is the in-flight record opened when a checkout URL is requested.
// Its ID is the provider's payment id, so the success callback can find it.
// Confirmation converts it into a Purchase and deletes it.
type Payment struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID    string `gorm:"index;not null"`
	ProductID string `gorm:"not null"`
	// Set for expanding (top-up) payments: the product whose purchase the
	// bought uses are added to.
	ProductToExpandID *string
}

// Chosen category set recorded at checkout, copied to the purchase on
// confirmation.
type PaymentCategory struct {
	PaymentID  string `gorm:"primaryKey"`
	CategoryID string `gorm:"primaryKey"`
}

// Purchase is the entitlement record. Access requires the expiration (if any)
// to be in the future AND the remaining-uses counter (if any) to be positive.
type Purchase struct {
	ID        string `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID         string `gorm:"index;not null"`
	ProductID      string `gorm:"not null"`
	ExpirationTime *time.Time
	RemainingUses  *int
}

type PurchaseCategory struct {
	PurchaseID string `gorm:"primaryKey"`
	CategoryID string `gorm:"primaryKey"`
}
