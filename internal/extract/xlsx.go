package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func xlsxText(_ context.Context, data []byte) (string, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var blocks []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			// skip the broken sheet, keep the others
			continue
		}
		var lines []string
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if c := strings.TrimSpace(cell); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- Sheet: %s ---\n%s", sheet, strings.Join(lines, "\n")))
	}
	return strings.Join(blocks, "\n\n"), len(blocks), nil
}
