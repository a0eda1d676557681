package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

var csvColumns = []string{"title", "price", "image_url", "description", "main_category", "sub_category"}

// ImportCSV loads menu rows when the catalog is still empty. It returns the
// number of inserted items; an already populated catalog yields 0 and no error.
func ImportCSV(ctx context.Context, db *gorm.DB, r io.Reader) (int, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.MenuItem{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	items, err := parseCSV(r)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, 100).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert menu items: %w", err)
	}
	return len(items), nil
}

// ImportCSVFile is ImportCSV over a file path.
func ImportCSVFile(ctx context.Context, db *gorm.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open menu csv: %w", err)
	}
	defer f.Close()
	return ImportCSV(ctx, db, f)
}

func parseCSV(r io.Reader) ([]models.MenuItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", col)
		}
	}

	var items []models.MenuItem
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		field := func(name string) string {
			return strings.TrimSpace(record[index[name]])
		}

		price, err := decimal.NewFromString(field("price"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: invalid price %q", line, field("price"))
		}
		sub := field("sub_category")
		if strings.EqualFold(sub, "nan") {
			sub = ""
		}
		items = append(items, models.MenuItem{
			Title:        field("title"),
			Price:        price,
			ImageURL:     field("image_url"),
			Description:  field("description"),
			MainCategory: field("main_category"),
			SubCategory:  sub,
		})
	}
	return items, nil
}

// LoadMappings reads a YAML vocabulary of the form
//
//	Coffee:
//	  Milk Coffee: [Cà phê sữa đá, Bạc Xỉu]
func LoadMappings(path string) (models.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	var vocab models.Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("parse mappings: %w", err)
	}
	return vocab, nil
}
