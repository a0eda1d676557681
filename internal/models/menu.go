package models

import "github.com/shopspring/decimal"

// MenuItem is read-only catalog data. An empty SubCategory means the item
// hangs directly off its main category.
type MenuItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Title        string          `gorm:"type:varchar(255);not null;index" json:"title"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL     string          `gorm:"type:text" json:"image_url"`
	Description  string          `gorm:"type:text" json:"description"`
	MainCategory string          `gorm:"type:varchar(255);not null;index" json:"main_category"`
	SubCategory  string          `gorm:"type:varchar(255);index" json:"sub_category,omitempty"`
}

func (MenuItem) TableName() string { return "menu_items" }

// Vocabulary is the menu hierarchy main category -> sub category -> item titles.
type Vocabulary map[string]map[string][]string
