// Package game provides the grid world in which an observer hunts hidden ghosts:
// positions, moves, board layouts, the game state and the ghosts' motion policies.
//
// Package game は観測者が隠れたゴーストを追う格子世界を提供します。
// 座標、行動、盤面レイアウト、ゲーム状態、ゴーストの行動方策を含みます。
package game

import "fmt"

// Position is a grid cell. X grows to the right and Y grows upward.
type Position struct {
	X int
	Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// JailPosition is the capture cell of the ghost with the given 1-based agent index.
// Every ghost has its own jail on row Y == 1.
func JailPosition(index int) Position {
	return Position{X: 2*index - 1, Y: 1}
}

type Direction int

const (
	Stop Direction = iota
	North
	South
	East
	West
)

// Directions is the canonical visiting order of moves.
var Directions = []Direction{North, South, East, West, Stop}

func (d Direction) String() string {
	switch d {
	case North:
		return "North"
	case South:
		return "South"
	case East:
		return "East"
	case West:
		return "West"
	case Stop:
		return "Stop"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (d Direction) Vector() (int, int) {
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

func Successor(p Position, d Direction) Position {
	dx, dy := d.Vector()
	return Position{X: p.X + dx, Y: p.Y + dy}
}
