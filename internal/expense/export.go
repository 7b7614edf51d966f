package expense

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName      = "Sheet1"
	dateNumFmt     = "yyyy-mm-dd hh:mm:ss"
	numColumns     = 3
	colAmount      = 0
	colDescription = 1
	colDate        = 2
)

// maxDescriptionLength is the most characters a spreadsheet cell holds
const maxDescriptionLength = excelize.TotalCellChars

// ErrDescriptionTooLong is returned for descriptions that do not fit a cell
var ErrDescriptionTooLong = errors.New("description too long")

// ExportHeader names the exported columns: amount, description, date
var ExportHeader = []string{"Сумма", "Назначение", "Дата"}

// ExportFileName returns the workbook name for a thread
func ExportFileName(threadID int64) string {
	return fmt.Sprintf("report-thread-%d.xlsx", threadID)
}

// Export writes the thread's records as an xlsx table. ok is false when the
// thread has nothing to export; nothing is written in that case.
func (l *Ledger) Export(threadID int64, w io.Writer) (ok bool, err error) {
	records := l.Records(threadID)
	if len(records) == 0 {
		return false, nil
	}
	if err := WriteWorkbook(w, records); err != nil {
		return false, fmt.Errorf("exporting thread %d: %w", threadID, err)
	}
	return true, nil
}

// WriteWorkbook writes records to w as a single-sheet workbook with a header row
func WriteWorkbook(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range records {
		if n := utf8.RuneCountInString(r.Description); n > maxDescriptionLength {
			return fmt.Errorf("row %d: %w: %d characters", i+2, ErrDescriptionTooLong, n)
		}
		amountCell, err := excelize.CoordinatesToCellName(colAmount+1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		// Written as numeric text so no digits are lost to float64
		if err := f.SetCellDefault(sheetName, amountCell, r.Amount.String()); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
		restCell, _ := excelize.CoordinatesToCellName(colDescription+1, i+2)
		row := []interface{}{r.Description, r.RecordedAt}
		if err := f.SetSheetRow(sheetName, restCell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if len(records) > 0 {
		numFmt := dateNumFmt
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return fmt.Errorf("creating date style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(colDate+1, len(records)+1)
		if err := f.SetCellStyle(sheetName, "C2", last, style); err != nil {
			return fmt.Errorf("styling dates: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "B", "B", 60); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "C", 20); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// ReadWorkbook reads records back from a workbook written by WriteWorkbook.
// Spreadsheet dates carry no zone, so wall-clock times are placed in loc.
func ReadWorkbook(r io.Reader, loc *time.Location) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []Record
	for i, row := range rows[1:] {
		rec, err := unmarshalRow(row, loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func unmarshalRow(row []string, loc *time.Location) (Record, error) {
	if len(row) != numColumns {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numColumns, len(row))
	}

	amount, err := decimal.NewFromString(row[colAmount])
	if err != nil {
		return Record{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
	}

	serial, err := strconv.ParseFloat(row[colDate], 64)
	if err != nil {
		return Record{}, fmt.Errorf("parsing date %q: %w", row[colDate], err)
	}
	wall, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return Record{}, fmt.Errorf("converting date %q: %w", row[colDate], err)
	}
	wall = wall.Round(time.Second)

	return Record{
		Amount:      amount,
		Description: row[colDescription],
		RecordedAt: time.Date(wall.Year(), wall.Month(), wall.Day(),
			wall.Hour(), wall.Minute(), wall.Second(), 0, loc),
	}, nil
}
