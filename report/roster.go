package report

import (
	"bytes"
	"fmt"
	"strings"

	"MamaCare/models"

	"github.com/xuri/excelize/v2"
)

const RosterSheet = "Nurse Roster"

var RosterHeader = []string{
	"Nurse ID",
	"Name",
	"Department",
	"Specialty",
	"Current Load",
	"Capacity",
	"Free Slots",
	"Patients",
}

var rosterWidths = []float64{38, 24, 18, 18, 14, 10, 12, 60}

/*
* One row per nurse below a frozen, styled header
* Patients are written as a comma separated list of names
 */
func Roster(entries []models.RosterEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(RosterSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, title := range RosterHeader {
		if err := setCell(f, i+1, 1, title); err != nil {
			return nil, err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(RosterSheet, col, col, rosterWidths[i]); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(RosterHeader), 1)
	if err := f.SetCellStyle(RosterSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}

	for i, e := range entries {
		row := i + 2
		free := e.Capacity - e.Nurse.CurrentLoad
		if free < 0 {
			free = 0
		}
		values := []interface{}{
			e.Nurse.ID,
			e.Nurse.Name,
			e.Nurse.Department,
			e.Nurse.Specialty,
			e.Nurse.CurrentLoad,
			e.Capacity,
			free,
			strings.Join(e.Patients, ", "),
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}
	}

	if err := f.SetPanes(RosterSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(RosterSheet, cell, value)
}
