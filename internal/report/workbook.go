package report

import (
	"github.com/pkg/errors"
	"github.com/tealeg/xlsx"

	"storefront-api/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

var productHeaders = []string{
	"ID", "Name", "Category", "Brand", "Price", "Stock",
	"Rating", "Reviews", "Image", "CreatedAt", "UpdatedAt",
}

// ProductsWorkbook builds a one-sheet catalog export.
func ProductsWorkbook(products []*model.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, errors.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range productHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.Hex())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Brand)
		row.AddCell().SetFloat(p.Price)
		row.AddCell().SetInt(p.Quantity)
		row.AddCell().SetFloat(p.RatingsAvg)
		row.AddCell().SetInt(p.RatingsCount)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(p.CreatedAt.Format(timeLayout))
		row.AddCell().SetString(p.UpdatedAt.Format(timeLayout))
	}
	return file, nil
}
