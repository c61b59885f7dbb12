package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// Catalog sheet columns. One row per variant; rows sharing a product name
// are folded into a single product.
const (
	colName = iota
	colDescription
	colPrice
	colWeight
	colCategory
	colTags
	colVariant
	colSize
	colColor
	colStock
	catalogColumns
)

var categoryPattern = regexp.MustCompile(`^[\p{L}\p{N} _-]{2,50}$`)

type catalogSummary struct {
	Rows     int
	Products int
	Variants int
	Skipped  int
}

func readCatalogFile(path string) ([]model.Product, catalogSummary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, catalogSummary{}, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	return readCatalog(f)
}

func readCatalog(f *excelize.File) ([]model.Product, catalogSummary, error) {
	var summary catalogSummary

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, summary, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, summary, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	byName := make(map[string]int)

	// First row is the header
	for _, row := range rows[1:] {
		summary.Rows++

		product, variant, ok := parseCatalogRow(row)
		if !ok {
			summary.Skipped++
			continue
		}

		idx, seen := byName[product.Name]
		if !seen {
			idx = len(products)
			byName[product.Name] = idx
			products = append(products, product)
		}
		if products[idx].Variant(variant.Label) != nil {
			summary.Skipped++
			continue
		}
		products[idx].Variants = append(products[idx].Variants, variant)
		summary.Variants++
	}

	summary.Products = len(products)
	return products, summary, nil
}

func parseCatalogRow(row []string) (model.Product, model.ProductVariant, bool) {
	if len(row) < catalogColumns {
		padded := make([]string, catalogColumns)
		copy(padded, row)
		row = padded
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	name := row[colName]
	if name == "" {
		return model.Product{}, model.ProductVariant{}, false
	}

	price, err := strconv.ParseFloat(row[colPrice], 64)
	if err != nil || price <= 0 {
		return model.Product{}, model.ProductVariant{}, false
	}

	var weight float64
	if row[colWeight] != "" {
		weight, err = strconv.ParseFloat(row[colWeight], 64)
		if err != nil || weight < 0 {
			return model.Product{}, model.ProductVariant{}, false
		}
	}

	category := strings.ToLower(row[colCategory])
	if !categoryPattern.MatchString(category) {
		return model.Product{}, model.ProductVariant{}, false
	}

	stock := 0
	if row[colStock] != "" {
		stock, err = strconv.Atoi(row[colStock])
		if err != nil || stock < 0 {
			return model.Product{}, model.ProductVariant{}, false
		}
	}

	product := model.Product{
		Name:        name,
		Description: row[colDescription],
		Price:       price,
		Weight:      weight,
		Category:    category,
		Tags:        splitTags(row[colTags]),
	}
	variant := model.ProductVariant{
		Label: row[colVariant],
		Size:  row[colSize],
		Color: row[colColor],
		Stock: stock,
	}
	return product, variant, true
}

func splitTags(raw string) pq.StringArray {
	var tags pq.StringArray
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
