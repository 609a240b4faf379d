package services

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	exportListSheet = "Appointments"
	exportGridSheet = "Week"
)

var greekWeekdays = []string{"Κυριακή", "Δευτέρα", "Τρίτη", "Τετάρτη", "Πέμπτη", "Παρασκευή", "Σάββατο"}

// WriteWeekWorkbook renders the grid as an xlsx with a flat appointment list
// and a day-by-slot sheet.
func WriteWeekWorkbook(w io.Writer, g WeekGrid, centerLabel string) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportListSheet)
	if err != nil {
		return errors.Wrap(err, "new sheet")
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(exportGridSheet); err != nil {
		return errors.Wrap(err, "new sheet")
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "drop default sheet")
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	// flat list
	sh := exportListSheet
	title := fmt.Sprintf("%s %s - %s", centerLabel, DisplayDate(g.Monday), DisplayDate(g.Monday.AddDate(0, 0, 6)))
	f.SetCellValue(sh, "A1", title)
	f.MergeCell(sh, "A1", "G1")
	f.SetCellStyle(sh, "A1", "A1", headerStyle)

	headers := []string{"Ημερομηνία", "Ώρα", "Διάρκεια", "Μαθητής", "ΑΜΚΑ", "Υπηρεσία", "Κατάσταση"}
	for i, h := range headers {
		f.SetCellValue(sh, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sh, "A2", cell(colName(len(headers)-1), 2), headerStyle)
	f.SetColWidth(sh, "A", "C", 12)
	f.SetColWidth(sh, "D", "D", 28)
	f.SetColWidth(sh, "E", "E", 14)
	f.SetColWidth(sh, "F", "F", 24)
	f.SetColWidth(sh, "G", "G", 12)

	row := 3
	for _, it := range g.Items() {
		f.SetCellValue(sh, cell("A", row), DisplayDate(it.Date()))
		f.SetCellValue(sh, cell("B", row), it.StartTime)
		f.SetCellValue(sh, cell("C", row), it.Duration())
		f.SetCellValue(sh, cell("D", row), it.StudentName())
		f.SetCellValue(sh, cell("E", row), it.NationalID)
		f.SetCellValue(sh, cell("F", row), it.ServiceName)
		f.SetCellValue(sh, cell("G", row), it.Status)
		row++
	}

	// grid: one column per open day, one row per slot
	sh = exportGridSheet
	f.SetCellValue(sh, "A1", "Ώρα")
	f.SetColWidth(sh, "A", "A", 8)
	for i, d := range g.Days {
		col := colName(i + 1)
		f.SetCellValue(sh, cell(col, 1), fmt.Sprintf("%s %s", greekWeekdays[d.Weekday()], DisplayDate(d)))
		f.SetColWidth(sh, col, col, 26)
	}
	f.SetCellStyle(sh, "A1", cell(colName(len(g.Days)), 1), headerStyle)

	for r, slot := range g.Slots {
		row := r + 2
		f.SetCellValue(sh, cell("A", row), slot)
		for i, d := range g.Days {
			var text string
			for _, it := range g.Cell(d, slot) {
				if text != "" {
					text += "\n"
				}
				text += fmt.Sprintf("%s %s (%s)", it.StartTime, it.StudentName(), it.ServiceName)
			}
			if text != "" {
				c := cell(colName(i+1), row)
				f.SetCellValue(sh, c, text)
				f.SetCellStyle(sh, c, c, wrapStyle)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
