// Package databasetest provides in-memory sqlite databases seeded with a small
// menu for package tests.
package databasetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Swuzz123/Coffee-Assistant/internal/database"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// Open returns a migrated, empty in-memory database closed with the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn}, logging.Discard())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Menu is the seed used by OpenSeeded.
func Menu() []models.MenuItem {
	return []models.MenuItem{
		item("Cà phê sữa đá", 29000, "Coffee", "Milk Coffee"),
		item("Bạc Xỉu", 39000, "Coffee", "Milk Coffee"),
		item("Cà phê đen đá", 39000, "Coffee", "Black Coffee"),
		item("Americano", 45000, "Coffee", "Black Coffee"),
		item("Trà đào cam sả", 45000, "Tea", "Fruit Tea"),
		item("Trà vải", 45000, "Tea", "Fruit Tea"),
		item("Matcha Latte", 55000, "Tea", "Matcha"),
		item("Mousse Matcha", 29000, "Cake", ""),
		item("Tiramisu", 35000, "Cake", ""),
	}
}

// OpenSeeded returns a database holding Menu.
func OpenSeeded(t testing.TB) *gorm.DB {
	t.Helper()

	db := Open(t)
	items := Menu()
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("seed menu: %v", err)
	}
	return db
}

func item(title string, price int64, main, sub string) models.MenuItem {
	return models.MenuItem{
		Title:        title,
		Price:        decimal.NewFromInt(price),
		ImageURL:     "https://img.mtcoffee.vn/" + uuid.NewString() + ".jpg",
		Description:  title + " pha theo công thức của quán",
		MainCategory: main,
		SubCategory:  sub,
	}
}
