package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/db"
	"github.com/promptforge/backend/internal/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestCategoriesOrdered(t *testing.T) {
	gdb := openDB(t)
	svc := catalog.New(gdb)

	for _, oi := range []string{"2", "1.10", "1.2", "1"} {
		if err := gdb.Create(&models.Category{
			ID: uuid.NewString(), Title: "c" + oi, OrderIndex: oi,
		}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cats, err := svc.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	// Lexicographic, not numeric: "1.10" sorts before "1.2".
	want := []string{"1", "1.10", "1.2", "2"}
	if len(cats) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(cats))
	}
	for i, w := range want {
		if cats[i].OrderIndex != w {
			t.Errorf("position %d: expected %q, got %q", i, w, cats[i].OrderIndex)
		}
	}
}

func TestCategoryNotFound(t *testing.T) {
	gdb := openDB(t)
	svc := catalog.New(gdb)

	_, err := svc.Category(uuid.NewString())
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestQuestionsOrderedWithOptions(t *testing.T) {
	gdb := openDB(t)
	svc := catalog.New(gdb)

	cat := models.Category{ID: uuid.NewString(), Title: "cat", OrderIndex: "1"}
	other := models.Category{ID: uuid.NewString(), Title: "other", OrderIndex: "2"}
	for _, c := range []*models.Category{&cat, &other} {
		if err := gdb.Create(c).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	second := models.Question{ID: uuid.NewString(), CategoryID: cat.ID, Text: "b", OrderIndex: 2, Type: models.QuestionOptions}
	first := models.Question{ID: uuid.NewString(), CategoryID: cat.ID, Text: "a", OrderIndex: 1, Type: models.QuestionText}
	foreign := models.Question{ID: uuid.NewString(), CategoryID: other.ID, Text: "x", OrderIndex: 1, Type: models.QuestionText}
	for _, q := range []*models.Question{&second, &first, &foreign} {
		if err := gdb.Create(q).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	for _, text := range []string{"beta", "alpha"} {
		if err := gdb.Create(&models.Option{
			ID: uuid.NewString(), QuestionID: second.ID, Text: text, TextToPrompt: text + " prompt",
		}).Error; err != nil {
			t.Fatalf("seed option: %v", err)
		}
	}

	out, err := svc.Questions(&cat.ID)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(out))
	}
	if out[0].Question.ID != first.ID || out[1].Question.ID != second.ID {
		t.Errorf("questions out of position order")
	}
	if len(out[0].Options) != 0 {
		t.Errorf("text question should have no options")
	}
	opts := out[1].Options
	if len(opts) != 2 || opts[0].Text != "alpha" || opts[1].Text != "beta" {
		t.Errorf("options should be ordered by text, got %+v", opts)
	}
}

func TestPromptLinesOrdered(t *testing.T) {
	gdb := openDB(t)
	svc := catalog.New(gdb)

	cat := models.Category{ID: uuid.NewString(), Title: "cat", OrderIndex: "1"}
	if err := gdb.Create(&cat).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i, text := range []string{"third", "first", "second"} {
		order := []int{3, 1, 2}[i]
		if err := gdb.Create(&models.PromptLine{
			ID: uuid.NewString(), CategoryID: cat.ID, Text: text, OrderIndex: order,
		}).Error; err != nil {
			t.Fatalf("seed line: %v", err)
		}
	}

	lines, err := svc.PromptLines(cat.ID)
	if err != nil {
		t.Fatalf("PromptLines: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d: expected %q, got %q", i, w, lines[i])
		}
	}
}
