package tracker

import (
	"fmt"
)

// tieEpsilon is the scale of the bias added to costs so that equal cost
// contests resolve in favour of lower rows, which hold the older tracks
const tieEpsilon = 1e-9

// iouCost returns the cost matrix 1-IoU between the expected box of each track
// and each detection box
func iouCost(tracks []*track, dets []Rect) [][]float64 {

	cost := make([][]float64, len(tracks))

	for i, tr := range tracks {
		cost[i] = make([]float64, len(dets))
		expected := tr.expected()

		for j, d := range dets {
			cost[i][j] = 1 - float64(expected.IoU(d))
		}
	}

	return cost
}

// linearAssignment solves the min cost assignment between rows and columns
// of the given cost matrix.  Pairs costing more than thresh are never matched.
func linearAssignment(cost [][]float64, rows, cols int,
	thresh float64) (matches [][2]int, unmatchedRows, unmatchedCols []int, err error) {

	if rows == 0 || cols == 0 {
		for i := 0; i < rows; i++ {
			unmatchedRows = append(unmatchedRows, i)
		}
		for j := 0; j < cols; j++ {
			unmatchedCols = append(unmatchedCols, j)
		}
		return
	}

	// bias by i*(cols-j) gives lexicographic preference to (low row, low col)
	// pairings, plus a smaller column term for the single row case
	biased := make([][]float64, rows)

	for i := range cost {
		biased[i] = make([]float64, cols)

		for j := range cost[i] {
			biased[i][j] = cost[i][j] +
				tieEpsilon*(float64(i*(cols-j))+float64(j)/float64(cols+1))
		}
	}

	rowsol, colsol, err := execLapjv(biased, thresh)

	if err != nil {
		return nil, nil, nil, err
	}

	for i, j := range rowsol {
		if j >= 0 && cost[i][j] <= thresh {
			matches = append(matches, [2]int{i, j})
			continue
		}

		if j >= 0 {
			colsol[j] = -1
		}

		unmatchedRows = append(unmatchedRows, i)
	}

	for j, i := range colsol {
		if i < 0 {
			unmatchedCols = append(unmatchedCols, j)
		}
	}

	return matches, unmatchedRows, unmatchedCols, nil
}

// execLapjv extends the rectangular cost matrix into a square one where every
// row and column may instead be assigned to a dummy at half the cost limit,
// then solves it with LAPJV.  Unassigned rows and columns are reported as -1.
func execLapjv(cost [][]float64, costLimit float64) (rowsol, colsol []int, err error) {

	nRows := len(cost)
	nCols := len(cost[0])
	n := nRows + nCols

	extended := make([][]float64, n)

	for i := range extended {
		extended[i] = make([]float64, n)

		for j := range extended[i] {
			switch {
			case i < nRows && j < nCols:
				extended[i][j] = cost[i][j]
			case i >= nRows && j >= nCols:
				extended[i][j] = 0
			default:
				extended[i][j] = costLimit / 2
			}
		}
	}

	x := make([]int, n)
	y := make([]int, n)

	ret, err := solveAssignment(n, extended, x, y)

	if err != nil {
		return nil, nil, fmt.Errorf("assignment solver failed: %w", err)
	}

	if ret != 0 {
		return nil, nil, fmt.Errorf("assignment solver left %d rows free", ret)
	}

	rowsol = make([]int, nRows)
	colsol = make([]int, nCols)

	for i := 0; i < nRows; i++ {
		rowsol[i] = x[i]
		if rowsol[i] >= nCols {
			rowsol[i] = -1
		}
	}

	for j := 0; j < nCols; j++ {
		colsol[j] = y[j]
		if colsol[j] >= nRows {
			colsol[j] = -1
		}
	}

	return rowsol, colsol, nil
}
