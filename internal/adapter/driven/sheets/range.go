package sheets

import "fmt"

// ColIndexToLetter converts a zero-based column index to its spreadsheet
// letter address: 0 -> "A", 25 -> "Z", 26 -> "AA", 701 -> "ZZ", 702 -> "AAA".
func ColIndexToLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

// fetchRange is the rectangular read range for a sheet: everything from
// column A through Z, header row included.
func fetchRange(sheetName string) string {
	return fmt.Sprintf("%s!A1:Z", sheetName)
}

// rowRange addresses the single absolute row holding the data record at
// logicalIndex. Row 1 is the header, so logical index 0 lives at row 2. The
// range spans column A through the column matching the record width.
func rowRange(sheetName string, logicalIndex, columns int) string {
	row := logicalIndex + 2
	lastCol := ColIndexToLetter(columns - 1)
	return fmt.Sprintf("%s!A%d:%s%d", sheetName, row, lastCol, row)
}
