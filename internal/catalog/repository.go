// Package catalog answers read-only menu queries. Storage failures never leak
// as raw driver errors: they come back wrapped in a *LookupError so callers
// can treat "no result" and "lookup failed" with the same fallback while still
// logging the difference.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/Swuzz123/Coffee-Assistant/internal/database"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// DefaultLimit bounds the random samples of the category queries.
const DefaultLimit = 5

var ErrNotFound = errors.New("menu item not found")

// LookupError reports a storage failure behind a catalog query.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// MainCategoryResult is either a sample of items (the main category has no sub
// categories) or the distinct sub category names to drill into.
type MainCategoryResult struct {
	Items         []models.MenuItem
	SubCategories []string
}

type Repository struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewRepository(db *gorm.DB, log logrus.FieldLogger) *Repository {
	return &Repository{db: db, log: logging.Component(log, "catalog")}
}

// GetExactItem matches the title exactly.
func (r *Repository) GetExactItem(ctx context.Context, title string) (models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).Where("title = ?", title).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MenuItem{}, ErrNotFound
	}
	if err != nil {
		return models.MenuItem{}, r.fail("get exact item", err)
	}
	return item, nil
}

// GetItemsByTitle matches the title ignoring case. Folding happens here rather
// than in SQL because sqlite's LOWER only folds ASCII.
func (r *Repository) GetItemsByTitle(ctx context.Context, title string) ([]models.MenuItem, error) {
	var rows []struct {
		ID    uint
		Title string
	}
	err := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Select("id", "title").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, r.fail("get items by title", err)
	}

	fold := cases.Fold()
	want := fold.String(title)
	var ids []uint
	for _, row := range rows {
		if fold.String(row.Title) == want {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var items []models.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return nil, r.fail("get items by title", err)
	}
	return items, nil
}

// GetTopItemsFromSubCategory returns up to limit random items.
func (r *Repository) GetTopItemsFromSubCategory(ctx context.Context, subCategory string, limit int) ([]models.MenuItem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var items []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("sub_category = ?", subCategory).
		Order(database.RandomOrder(r.db)).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, r.fail("get top items from sub category", err)
	}
	return items, nil
}

// GetTopItemsFromMainCategory drills down one level: items when the main
// category has no sub categories, otherwise the sub category names.
func (r *Repository) GetTopItemsFromMainCategory(ctx context.Context, mainCategory string, limit int) (MainCategoryResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	subs, err := r.subCategories(ctx, mainCategory)
	if err != nil {
		return MainCategoryResult{}, err
	}
	if len(subs) > 0 {
		return MainCategoryResult{SubCategories: subs}, nil
	}

	var items []models.MenuItem
	err = r.db.WithContext(ctx).
		Where("main_category = ?", mainCategory).
		Order(database.RandomOrder(r.db)).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return MainCategoryResult{}, r.fail("get top items from main category", err)
	}
	return MainCategoryResult{Items: items}, nil
}

func (r *Repository) subCategories(ctx context.Context, mainCategory string) ([]string, error) {
	var subs []string
	err := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("main_category = ? AND sub_category IS NOT NULL AND sub_category <> '' AND sub_category <> 'NaN'", mainCategory).
		Distinct("sub_category").
		Order("sub_category").
		Pluck("sub_category", &subs).Error
	if err != nil {
		return nil, r.fail("get sub categories", err)
	}
	return subs, nil
}

// Vocabulary builds main -> sub -> titles from the whole catalog. Items without
// a sub category are listed under the "" key.
func (r *Repository) Vocabulary(ctx context.Context) (models.Vocabulary, error) {
	var items []models.MenuItem
	err := r.db.WithContext(ctx).
		Select("title", "main_category", "sub_category").
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, r.fail("build vocabulary", err)
	}

	vocab := make(models.Vocabulary)
	for _, item := range items {
		subs, ok := vocab[item.MainCategory]
		if !ok {
			subs = make(map[string][]string)
			vocab[item.MainCategory] = subs
		}
		sub := item.SubCategory
		if sub == "NaN" {
			sub = ""
		}
		subs[sub] = append(subs[sub], item.Title)
	}
	return vocab, nil
}

func (r *Repository) fail(op string, err error) error {
	r.log.WithError(err).WithField("op", op).Error("Catalog lookup failed")
	return &LookupError{Op: op, Err: err}
}
