package inventoryControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/models"
)

// GET /admin/inventory/export
func ExportInventoryToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var products []models.Product
		if err := db.Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		records := make(map[uint]models.InventoryRecord)
		var all []models.InventoryRecord
		if err := db.Find(&all).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
			return
		}
		for _, record := range all {
			records[record.ProductID] = record
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Inventory")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		headers := []string{
			"ProductID", "Name", "Counter", "LedgerQuantity", "Drift",
			"MinimumStockLevel", "MaximumStockLevel", "LastRestockDate", "LastStockOutDate",
		}
		headerRow := sheet.AddRow()
		for _, h := range headers {
			headerRow.AddCell().SetValue(h)
		}

		for _, p := range products {
			row := sheet.AddRow()
			row.AddCell().SetValue(p.ID)
			row.AddCell().SetValue(p.Name)
			row.AddCell().SetValue(p.Stock)

			record, ok := records[p.ID]
			if !ok {
				row.AddCell().SetValue("missing")
				row.AddCell().SetValue("missing")
				continue
			}
			row.AddCell().SetValue(record.Quantity)
			row.AddCell().SetValue(p.Stock != record.Quantity)
			row.AddCell().SetValue(record.MinimumStockLevel)
			row.AddCell().SetValue(record.MaximumStockLevel)
			if record.LastRestockDate != nil {
				row.AddCell().SetValue(record.LastRestockDate.Format("2006-01-02 15:04:05"))
			} else {
				row.AddCell().SetValue("")
			}
			if record.LastStockOutDate != nil {
				row.AddCell().SetValue(record.LastStockOutDate.Format("2006-01-02 15:04:05"))
			} else {
				row.AddCell().SetValue("")
			}
		}

		c.Header("Content-Disposition", "attachment; filename=inventory.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
