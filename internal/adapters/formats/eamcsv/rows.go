package eamcsv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"

	"github.com/okian/scoreimport/internal/domain/importerr"
)

var (
	zipMagic = []byte("PK\x03\x04")
	utf8BOM  = []byte("\xEF\xBB\xBF")
)

// readRows returns the header and data rows of an export. Spreadsheets
// re-saved as XLSX are read from their first sheet; text exports may be
// UTF-8 or Shift_JIS.
func readRows(data []byte) ([]string, [][]string, error) {
	var rows [][]string
	var err error
	if bytes.HasPrefix(data, zipMagic) {
		rows, err = readXLSX(data)
	} else {
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, importerr.Malformed(Format, "empty document", nil)
	}
	return rows[0], rows[1:], nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, importerr.Malformed(Format, "unreadable XLSX workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, importerr.Malformed(Format, "workbook has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, importerr.Malformed(Format, fmt.Sprintf("unreadable sheet %q", sheets[0]), err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
		if err != nil {
			return nil, importerr.Malformed(Format, "text is neither UTF-8 nor Shift_JIS", err)
		}
		data = decoded
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, importerr.Malformed(Format, "invalid CSV", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
