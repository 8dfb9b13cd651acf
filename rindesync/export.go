package rindesync

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportExpensesHandler streams the journal's imported expenses as an XLSX
// workbook. Optional since/until query params narrow the window.
func ExportExpensesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		journalId, err := strconv.Atoi(c.Query("journal_id"))
		if err != nil || journalId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "journal_id is required"})
			return
		}

		since := time.Time{}
		until := time.Time{}
		if v := c.Query("since"); v != "" {
			if since, err = time.Parse(time.DateOnly, v); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since date"})
				return
			}
		}
		if v := c.Query("until"); v != "" {
			if until, err = time.Parse(time.DateOnly, v); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until date"})
				return
			}
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		expenses, err := models.ListExpensesForExport(ctx, businessId, journalId, since, until)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f := excelize.NewFile()
		sheet := "Sheet1"
		f.SetCellValue(sheet, "A1", "Reference")
		f.SetCellValue(sheet, "B1", "Date")
		f.SetCellValue(sheet, "C1", "Amount")
		f.SetCellValue(sheet, "D1", "Description")
		f.SetCellValue(sheet, "E1", "State")
		f.SetCellValue(sheet, "F1", "FileURL")

		for i, e := range expenses {
			row := fmt.Sprint(i + 2)
			f.SetCellValue(sheet, "A"+row, e.Reference)
			f.SetCellValue(sheet, "B"+row, e.Date.Format(time.DateOnly))
			amount, _ := e.Amount.Float64()
			f.SetCellValue(sheet, "C"+row, amount)
			f.SetCellValue(sheet, "D"+row, e.Description)
			f.SetCellValue(sheet, "E"+row, e.State)
			f.SetCellValue(sheet, "F"+row, e.FileURL)
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=rindegastos-expenses.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}
