package MobileRoutes

import (
	"math"

	"golang.org/x/exp/rand"
)

// haversineDistance calculates the great-circle distance between two points on Earth
func haversineDistance(p1, p2 Point) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lng1 := p1.Lng * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	lng2 := p2.Lng * math.Pi / 180

	dlat := lat2 - lat1
	dlng := lng2 - lng1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// distanceMatrix precomputes pairwise distances for the solvers.
func distanceMatrix(points []Point) [][]float64 {
	n := len(points)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			matrix[i][j] = haversineDistance(points[i], points[j])
		}
	}
	return matrix
}

// solveRoute dispatches to the requested algorithm and returns the
// visiting order plus the algorithm's display name. Index 0 is the
// fixed start, index n-1 the fixed end.
func solveRoute(distMatrix [][]float64, algorithm string) ([]int, string) {
	n := len(distMatrix)

	switch algorithm {
	case "nearest":
		return nearestNeighborTSP(distMatrix, 0, n-1), "Nearest Neighbor"
	case "simulated":
		return simulatedAnnealing(distMatrix, 0, n-1), "Simulated Annealing"
	default: // "2opt" or any other value
		route := nearestNeighborTSP(distMatrix, 0, n-1)
		return twoOptImprovement(route, distMatrix), "Nearest Neighbor with 2-opt improvement"
	}
}

// nearestNeighborTSP implements the nearest neighbor algorithm for TSP
// with fixed start and end points
func nearestNeighborTSP(distMatrix [][]float64, startIdx, endIdx int) []int {
	n := len(distMatrix)
	route := make([]int, 0, n)
	visited := make([]bool, n)

	route = append(route, startIdx)
	visited[startIdx] = true
	visited[endIdx] = true // Mark end as temporarily visited

	current := startIdx
	remaining := n - 2 // Minus start and end

	for remaining > 0 {
		nearest := -1
		minDist := math.Inf(1)

		for j := 0; j < n; j++ {
			if !visited[j] && distMatrix[current][j] < minDist {
				minDist = distMatrix[current][j]
				nearest = j
			}
		}

		if nearest != -1 {
			route = append(route, nearest)
			visited[nearest] = true
			current = nearest
			remaining--
		} else {
			break
		}
	}

	visited[endIdx] = false // Unmark end
	route = append(route, endIdx)

	return route
}

// twoOptImprovement implements the 2-opt improvement algorithm
func twoOptImprovement(route []int, distMatrix [][]float64) []int {
	n := len(route)
	improvement := true

	for improvement {
		improvement = false

		for i := 0; i < n-3; i++ {
			for j := i + 2; j < n-1; j++ {
				currentDist := distMatrix[route[i]][route[i+1]] + distMatrix[route[j]][route[j+1]]
				newDist := distMatrix[route[i]][route[j]] + distMatrix[route[i+1]][route[j+1]]

				if newDist < currentDist {
					// Reverse the sub-route between i+1 and j
					for k, l := i+1, j; k < l; k, l = k+1, l-1 {
						route[k], route[l] = route[l], route[k]
					}
					improvement = true
				}
			}
		}
	}

	return route
}

// Simulated annealing parameters
const (
	initialTemperature = 100.0
	coolingRate        = 0.99
	minTemperature     = 0.01
)

// simulatedAnnealing implements the simulated annealing algorithm for TSP
func simulatedAnnealing(distMatrix [][]float64, startIdx, endIdx int) []int {
	// Initialize with nearest neighbor solution
	route := nearestNeighborTSP(distMatrix, startIdx, endIdx)
	if len(route) < 4 {
		return route // nothing to shuffle between the fixed ends
	}

	bestRoute := make([]int, len(route))
	copy(bestRoute, route)
	bestCost := routeCost(route, distMatrix)
	currentCost := bestCost

	temperature := initialTemperature

	for temperature > minTemperature {
		// Create new solution by swapping two stops (excluding start and end)
		newRoute := make([]int, len(route))
		copy(newRoute, route)

		i := rand.Intn(len(route)-2) + 1 // +1 to skip start
		j := rand.Intn(len(route)-2) + 1
		for i == j {
			j = rand.Intn(len(route)-2) + 1
		}

		newRoute[i], newRoute[j] = newRoute[j], newRoute[i]

		newCost := routeCost(newRoute, distMatrix)

		if acceptNewSolution(currentCost, newCost, temperature) {
			route = newRoute
			currentCost = newCost

			if newCost < bestCost {
				copy(bestRoute, route)
				bestCost = newCost
			}
		}

		temperature *= coolingRate
	}

	return bestRoute
}

// acceptNewSolution decides whether to accept a new solution in simulated annealing
func acceptNewSolution(currentCost, newCost, temperature float64) bool {
	if newCost < currentCost {
		return true
	}

	// Accept worse solutions with a probability that shrinks as the
	// system cools
	delta := newCost - currentCost
	probability := math.Exp(-delta / temperature)

	return rand.Float64() < probability
}

// routeCost calculates the total cost of a route
func routeCost(route []int, distMatrix [][]float64) float64 {
	cost := 0.0
	for i := 0; i < len(route)-1; i++ {
		cost += distMatrix[route[i]][route[i+1]]
	}
	return cost
}
