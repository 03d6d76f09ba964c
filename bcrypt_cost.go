//go:build !race

package jwtauth

func passwordHashCost() int {
	return 12
}
