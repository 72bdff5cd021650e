package tracker

import (
	"errors"
	"fmt"
)

// maxReducedCost is an upper bound on any reduced cost in the square matrix
const maxReducedCost = 1000000.0

// solveAssignment finds the minimum cost assignment of the n x n cost matrix
// (Jonker-Volgenant).  rowCol receives the column of each row and colRow the
// row of each column.  It returns the number of rows left unassigned, which
// is zero on success.
func solveAssignment(n int, cost [][]float64, rowCol, colRow []int) (int, error) {

	free := make([]int, n)
	price := make([]float64, n)

	nFree := reduceColumns(n, cost, free, rowCol, colRow, price)

	// two rounds of row reduction settle most rows before augmenting
	for round := 0; nFree > 0 && round < 2; round++ {
		nFree = reduceRows(n, cost, nFree, free, rowCol, colRow, price)
	}

	if nFree == 0 {
		return 0, nil
	}

	if err := augmentFreeRows(n, cost, nFree, free, rowCol, colRow, price); err != nil {
		return nFree, fmt.Errorf("augmentation failed: %w", err)
	}

	return 0, nil
}

// reduceColumns assigns every column to its cheapest row, keeps one column
// per row and moves the slack of uniquely assigned rows into the column
// prices.  The unassigned rows are written to free and counted.
func reduceColumns(n int, cost [][]float64, free, rowCol, colRow []int, price []float64) int {

	single := make([]bool, n)

	for i := 0; i < n; i++ {
		rowCol[i] = -1
		price[i] = maxReducedCost
		colRow[i] = 0
		single[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost[i][j]; c < price[j] {
				price[j] = c
				colRow[j] = i
			}
		}
	}

	// scanning backwards gives a row its lowest numbered cheapest column
	for j := n - 1; j >= 0; j-- {
		i := colRow[j]

		if rowCol[i] < 0 {
			rowCol[i] = j
			continue
		}

		single[i] = false
		colRow[j] = -1
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if rowCol[i] < 0 {
			free[nFree] = i
			nFree++
			continue
		}

		if !single[i] {
			continue
		}

		assigned := rowCol[i]
		slack := maxReducedCost

		for j := 0; j < n; j++ {
			if j == assigned {
				continue
			}

			if c := cost[i][j] - price[j]; c < slack {
				slack = c
			}
		}

		price[assigned] -= slack
	}

	return nFree
}

// reduceRows runs one pass of augmenting row reduction over the free rows.
// Each free row takes its cheapest column, displacing the row holding it
// which then becomes free.  It returns the number of rows still free.
func reduceRows(n int, cost [][]float64, nFree int, free, rowCol, colRow []int,
	price []float64) int {

	next := 0
	stillFree := 0
	steps := 0

	for next < nFree {

		steps++
		row := free[next]
		next++

		// best and second best reduced cost of the row
		best, bestCol := cost[row][0]-price[0], 0
		second, secondCol := maxReducedCost, -1

		for j := 1; j < n; j++ {
			c := cost[row][j] - price[j]

			if c >= second {
				continue
			}

			if c >= best {
				second, secondCol = c, j
				continue
			}

			second, secondCol = best, bestCol
			best, bestCol = c, j
		}

		displaced := colRow[bestCol]
		lowered := price[bestCol] - (second - best)
		lowers := lowered < price[bestCol]

		if steps < next*n {
			if lowers {
				price[bestCol] = lowered
			} else if displaced >= 0 && secondCol >= 0 {
				bestCol = secondCol
				displaced = colRow[secondCol]
			}

			if displaced >= 0 {
				if lowers {
					// the displaced row is retried straight away
					next--
					free[next] = displaced
				} else {
					free[stillFree] = displaced
					stillFree++
				}
			}

		} else if displaced >= 0 {
			free[stillFree] = displaced
			stillFree++
		}

		rowCol[row] = bestCol
		colRow[bestCol] = row
	}

	return stillFree
}

// collectMinColumns moves the columns with the smallest distance, starting
// at lo, to the front of the unscanned part of cols and returns the end of
// that group
func collectMinColumns(n int, lo int, dist []float64, cols []int) int {

	hi := lo + 1
	smallest := dist[cols[lo]]

	for k := hi; k < n; k++ {

		j := cols[k]

		if dist[j] > smallest {
			continue
		}

		if dist[j] < smallest {
			hi = lo
			smallest = dist[j]
		}

		cols[k], cols[hi] = cols[hi], j
		hi++
	}

	return hi
}

// scanColumns relaxes the distances of the unscanned columns through the
// columns in cols[lo:hi].  It returns an unassigned column reached at the
// smallest distance, or -1 once the group is exhausted.
func scanColumns(n int, cost [][]float64, lo, hi *int, dist []float64,
	cols, pred, colRow []int, price []float64) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++

		row := colRow[j]
		smallest := dist[j]
		offset := cost[row][j] - price[j] - smallest

		for k := *hi; k < n; k++ {
			j = cols[k]
			reduced := cost[row][j] - price[j] - offset

			if reduced >= dist[j] {
				continue
			}

			dist[j] = reduced
			pred[j] = row

			if reduced != smallest {
				continue
			}

			if colRow[j] < 0 {
				return j
			}

			cols[k], cols[*hi] = cols[*hi], j
			*hi++
		}
	}

	return -1
}

// shortestAugmentingPath runs Dijkstra over reduced costs from row start
// until it reaches an unassigned column, which is returned.  pred records
// the path and the prices of the settled columns are updated.
func shortestAugmentingPath(n int, cost [][]float64, start int, colRow []int,
	price []float64, pred []int) int {

	lo, hi := 0, 0
	settled := 0
	end := -1

	cols := make([]int, n)
	dist := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = start
		dist[j] = cost[start][j] - price[j]
	}

	for end == -1 {

		if lo == hi {
			settled = lo
			hi = collectMinColumns(n, lo, dist, cols)

			for _, j := range cols[lo:hi] {
				if colRow[j] < 0 {
					end = j
				}
			}
		}

		if end == -1 {
			end = scanColumns(n, cost, &lo, &hi, dist, cols, pred, colRow, price)
		}
	}

	smallest := dist[cols[lo]]

	for _, j := range cols[:settled] {
		price[j] += dist[j] - smallest
	}

	return end
}

// augmentFreeRows assigns each remaining free row along its shortest
// augmenting path
func augmentFreeRows(n int, cost [][]float64, nFree int, free, rowCol, colRow []int,
	price []float64) error {

	pred := make([]int, n)

	for _, start := range free[:nFree] {

		j := shortestAugmentingPath(n, cost, start, colRow, price, pred)

		switch {
		case j < 0:
			return errors.New("no augmenting path found")
		case j >= n:
			return errors.New("augmenting path left the matrix")
		}

		row := -1

		for steps := 1; row != start; steps++ {

			row = pred[j]
			colRow[j] = row
			j, rowCol[row] = rowCol[row], j

			if steps >= n {
				return errors.New("augmenting path did not terminate")
			}
		}
	}

	return nil
}
