// Package invoice renders order documents. Rendering is a pure function
// of persisted order state.
package invoice

import (
	"bytes"
	"errors"

	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/apperrors"
	"github.com/mbilalsh/storefront-api/models"
)

// Renderer produces invoice bytes for a persisted order.
type Renderer interface {
	RenderInvoice(db *gorm.DB, orderID uint) ([]byte, error)
}

// XLSXRenderer renders invoices as spreadsheets.
type XLSXRenderer struct{}

func (XLSXRenderer) RenderInvoice(db *gorm.DB, orderID uint) ([]byte, error) {
	var order models.Order
	if err := db.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Persistence("load order", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Invoice")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	header.AddCell().SetValue("Order Number")
	header.AddCell().SetValue(order.OrderNumber)

	placed := sheet.AddRow()
	placed.AddCell().SetValue("Placed At")
	placed.AddCell().SetValue(order.CreatedAt.Format("2006-01-02 15:04:05"))

	sheet.AddRow() // spacer

	columns := sheet.AddRow()
	for _, h := range []string{"Product", "Quantity", "Unit Price", "Line Total"} {
		columns.AddCell().SetValue(h)
	}

	for _, item := range order.Items {
		row := sheet.AddRow()
		row.AddCell().SetValue(item.ProductName)
		row.AddCell().SetValue(item.Quantity)
		row.AddCell().SetValue(item.UnitPrice)
		row.AddCell().SetValue(item.UnitPrice * float64(item.Quantity))
	}

	sheet.AddRow() // spacer

	if order.DiscountAmount > 0 {
		discount := sheet.AddRow()
		discount.AddCell().SetValue("Discount (" + order.DiscountCode + ")")
		discount.AddCell().SetValue(-order.DiscountAmount)
	}
	total := sheet.AddRow()
	total.AddCell().SetValue("Total")
	total.AddCell().SetValue(order.TotalAmount)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
