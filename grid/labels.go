package grid

import "strconv"

var columnNames = [Cols]string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"}

// Label returns the Moonboard name of a cell, e.g. row 0 column 0 is "A18"
// and row 17 column 10 is "K1".
func Label(row, col int) string {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return ""
	}
	return columnNames[col] + strconv.Itoa(Rows-row)
}

// Holds lists the labels of the set cells, top row first.
func (g Grid) Holds() []string {
	holds := make([]string, 0)
	for i := range g {
		for j := range g[i] {
			if g[i][j] == 1 {
				holds = append(holds, Label(i, j))
			}
		}
	}
	return holds
}
