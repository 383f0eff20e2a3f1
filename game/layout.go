package game

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

const (
	WallMark     = '%'
	ObserverMark = 'P'
	GhostMark    = 'G'
)

var (
	ErrInvalidLayout  = errors.New("layout error")
	ErrLayoutNotFound = errors.New("layout not found")
)

//go:embed layouts/*.lay
var builtinLayouts embed.FS

// Layout is a rectangular board of walls and open cells.
//
// Layoutは壁と通路から成る長方形の盤面を表します。
type Layout struct {
	Width  int
	Height int
	// walls[x][y]
	walls         [][]bool
	ObserverStart Position
	GhostStarts   []Position
}

// ParseLayout reads the text layout format: '%' is a wall, 'P' the observer start,
// 'G' a ghost start and any other character an open cell. The first text row is the
// top of the board.
//
// ParseLayoutはテキスト形式のレイアウトを読み込みます。テキストの1行目が盤面の最上段です。
func ParseLayout(text string) (*Layout, error) {
	rows := make([]string, 0)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidLayout)
	}

	width := len(rows[0])
	height := len(rows)
	l := &Layout{
		Width:         width,
		Height:        height,
		walls:         make([][]bool, width),
		ObserverStart: Position{X: -1, Y: -1},
	}
	for x := range l.walls {
		l.walls[x] = make([]bool, height)
	}

	observerFound := false
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrInvalidLayout, i, len(row), width)
		}
		y := height - 1 - i
		for x, c := range []byte(row) {
			p := Position{X: x, Y: y}
			switch c {
			case WallMark:
				l.walls[x][y] = true
			case ObserverMark:
				if observerFound {
					return nil, fmt.Errorf("%w: more than one observer start", ErrInvalidLayout)
				}
				observerFound = true
				l.ObserverStart = p
			case GhostMark:
				l.GhostStarts = append(l.GhostStarts, p)
			}
		}
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadLayout reads a layout file from disk, or a built-in layout when name has no
// file on disk (for example "smallHunt").
func LoadLayout(name string) (*Layout, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading layout file: %w", err)
		}
		data, err = builtinLayouts.ReadFile(path.Join("layouts", strings.TrimSuffix(name, ".lay")+".lay"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
		}
	}
	return ParseLayout(string(data))
}

// BuiltinLayouts lists the names accepted by LoadLayout without a file on disk.
func BuiltinLayouts() []string {
	entries, err := builtinLayouts.ReadDir("layouts")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".lay"))
	}
	sort.Strings(names)
	return names
}

func (l *Layout) Validate() error {
	if l.Height < 3 {
		return fmt.Errorf("%w: height %d leaves no row above the jail row", ErrInvalidLayout, l.Height)
	}
	if !l.InBounds(l.ObserverStart) {
		return fmt.Errorf("%w: no observer start", ErrInvalidLayout)
	}
	if l.IsWall(l.ObserverStart) {
		return fmt.Errorf("%w: observer starts in a wall", ErrInvalidLayout)
	}
	// 最下段と1段目(牢屋の行)は全て壁である必要がある
	for x := 0; x < l.Width; x++ {
		for y := 0; y < 2; y++ {
			if !l.walls[x][y] {
				return fmt.Errorf("%w: rows 0 and 1 must be walls, (%d, %d) is open", ErrInvalidLayout, x, y)
			}
		}
	}
	if len(l.LegalPositions()) == 0 {
		return fmt.Errorf("%w: no legal ghost positions", ErrInvalidLayout)
	}
	for i := range l.GhostStarts {
		if jail := JailPosition(i + 1); !l.InBounds(jail) {
			return fmt.Errorf("%w: board too narrow for the jail of ghost %d", ErrInvalidLayout, i+1)
		}
	}
	return nil
}

func (l *Layout) InBounds(p Position) bool {
	return p.X >= 0 && p.X < l.Width && p.Y >= 0 && p.Y < l.Height
}

// IsWall reports whether p is a wall. Cells outside the board count as walls.
func (l *Layout) IsWall(p Position) bool {
	if !l.InBounds(p) {
		return true
	}
	return l.walls[p.X][p.Y]
}

// LegalNeighbors returns the cells reachable from p in one move, p itself included.
func (l *Layout) LegalNeighbors(p Position) []Position {
	neighbors := make([]Position, 0, len(Directions))
	for _, d := range Directions {
		next := Successor(p, d)
		if !l.IsWall(next) {
			neighbors = append(neighbors, next)
		}
	}
	return neighbors
}

// LegalPositions returns the open cells a free ghost may occupy, column by column.
// Rows 0 and 1 are excluded; row 1 holds the jail cells.
func (l *Layout) LegalPositions() []Position {
	ps := make([]Position, 0, l.Width*l.Height)
	for x := 0; x < l.Width; x++ {
		for y := 2; y < l.Height; y++ {
			if !l.walls[x][y] {
				ps = append(ps, Position{X: x, Y: y})
			}
		}
	}
	return ps
}

func (l *Layout) NumGhosts() int {
	return len(l.GhostStarts)
}

func (l *Layout) String() string {
	var b strings.Builder
	for y := l.Height - 1; y >= 0; y-- {
		for x := 0; x < l.Width; x++ {
			p := Position{X: x, Y: y}
			switch {
			case l.walls[x][y]:
				b.WriteByte(WallMark)
			case p == l.ObserverStart:
				b.WriteByte(ObserverMark)
			case containsPosition(l.GhostStarts, p):
				b.WriteByte(GhostMark)
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func containsPosition(ps []Position, p Position) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
