// Package puzzle generates and verifies cooperative matrix puzzles.
//
// Each puzzle is an equation over four unknowns P1..P4. Unknown m is hidden in
// a random cell of matrix m, and the player in slot m is the one player who
// cannot see matrix m.
package puzzle

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

const (
	// Size is the side length of every matrix.
	Size = 4
	// Players is the number of unknowns, matrices and player slots.
	Players = 4
	// MaxDerived caps the magnitude of the derived unknown.
	MaxDerived = 9999

	maxAttempts = 1000
)

var ErrExhausted = errors.New("puzzle generation exhausted its attempts")

type Operator int

const (
	Add Operator = iota
	Sub
	Mul
	Div
)

func (o Operator) String() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	default:
		return "?"
	}
}

func (o Operator) binding() int {
	if o == Mul || o == Div {
		return 2
	}
	return 1
}

// Shape is the layout of the equation.
type Shape int

const (
	// ShapeA is P1∘P2∘P3=P4.
	ShapeA Shape = iota
	// ShapeB is P1=P2∘P3∘P4.
	ShapeB
	// ShapeC is P1∘P2=P3∘P4.
	ShapeC
)

func (s Shape) String() string {
	switch s {
	case ShapeA:
		return "A"
	case ShapeB:
		return "B"
	case ShapeC:
		return "C"
	default:
		return "?"
	}
}

type Matrix [Size][Size]int

// Flatten returns the cells in row-major order.
func (m Matrix) Flatten() []int {
	out := make([]int, 0, Size*Size)
	for r := range Size {
		out = append(out, m[r][:]...)
	}
	return out
}

type Cell struct {
	Row, Col int
}

func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

type Puzzle struct {
	Round    int
	Shape    Shape
	Op1, Op2 Operator
	Matrices [Players]Matrix
	Solution [Players]Cell
	Values   [Players]int
}

// Difficulty describes how a round's puzzle is drawn.
type Difficulty struct {
	Shape         Shape
	Op1, Op2      []Operator
	Min, Max      int
	AllowNegative bool
}

// DifficultyFor returns the profile for round. Rounds past the last profile
// reuse it; rounds below 1 use the first.
func DifficultyFor(round int) Difficulty {
	switch {
	case round <= 1:
		return Difficulty{Shape: ShapeA, Op1: []Operator{Add, Sub}, Op2: []Operator{Add, Sub}, Min: 1, Max: 50}
	case round == 2:
		return Difficulty{Shape: ShapeC, Op1: []Operator{Add, Sub}, Op2: []Operator{Add, Sub}, Min: 10, Max: 80}
	case round == 3:
		return Difficulty{Shape: ShapeB, Op1: []Operator{Mul}, Op2: []Operator{Add, Sub}, Min: 2, Max: 30}
	case round == 4:
		return Difficulty{Shape: ShapeC, Op1: []Operator{Mul}, Op2: []Operator{Add, Sub, Mul}, Min: 2, Max: 40}
	default:
		return Difficulty{Shape: ShapeA, Op1: []Operator{Mul, Div}, Op2: []Operator{Add, Sub, Mul, Div}, Min: -20, Max: 50, AllowNegative: true}
	}
}

func pick(rng *rand.Rand, ops []Operator) Operator {
	return ops[rng.IntN(len(ops))]
}

func draw(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// Generate builds the puzzle for round. Draws that would produce a
// non-integral, oversized or forbidden negative unknown are discarded and
// redrawn; ErrExhausted is returned if no valid draw is found.
func Generate(round int, rng *rand.Rand) (*Puzzle, error) {
	d := DifficultyFor(round)

	for range maxAttempts {
		p := &Puzzle{
			Round: round,
			Shape: d.Shape,
			Op1:   pick(rng, d.Op1),
			Op2:   pick(rng, d.Op2),
		}
		if !p.solve(rng, d) {
			continue
		}
		p.fill(rng, d)
		return p, nil
	}

	return nil, fmt.Errorf("round %d: %w", round, ErrExhausted)
}

func (p *Puzzle) solve(rng *rand.Rand, d Difficulty) bool {
	v := &p.Values
	var derived int
	var ok bool

	switch p.Shape {
	case ShapeA:
		v[0], v[1], v[2] = draw(rng, d.Min, d.Max), draw(rng, d.Min, d.Max), draw(rng, d.Min, d.Max)
		v[3], ok = eval(v[0], p.Op1, v[1], p.Op2, v[2])
		derived = v[3]
	case ShapeB:
		v[1], v[2], v[3] = draw(rng, d.Min, d.Max), draw(rng, d.Min, d.Max), draw(rng, d.Min, d.Max)
		v[0], ok = eval(v[1], p.Op1, v[2], p.Op2, v[3])
		derived = v[0]
	case ShapeC:
		v[0], v[2], v[3] = draw(rng, d.Min, d.Max), draw(rng, d.Min, d.Max), draw(rng, d.Min, d.Max)
		var right int
		if right, ok = apply(v[2], p.Op2, v[3]); ok {
			v[1], ok = inverse(v[0], p.Op1, right)
		}
		derived = v[1]
	}

	if !ok || derived > MaxDerived || derived < -MaxDerived {
		return false
	}
	if derived < 0 && !d.AllowNegative {
		return false
	}

	return p.Check()
}

// fill writes random filler into every matrix, then hides unknown m in matrix m.
func (p *Puzzle) fill(rng *rand.Rand, d Difficulty) {
	lo := d.Min
	if !d.AllowNegative && lo < 0 {
		lo = 0
	}

	for m := range Players {
		for r := range Size {
			for c := range Size {
				n := draw(rng, lo, d.Max)
				for n == p.Values[m] && d.Max > lo {
					n = draw(rng, lo, d.Max)
				}
				p.Matrices[m][r][c] = n
			}
		}

		cell := Cell{Row: rng.IntN(Size), Col: rng.IntN(Size)}
		p.Solution[m] = cell
		p.Matrices[m][cell.Row][cell.Col] = p.Values[m]
	}
}

// Check reports whether the stored unknowns satisfy the equation exactly.
func (p *Puzzle) Check() bool {
	v := p.Values
	switch p.Shape {
	case ShapeA:
		got, ok := eval(v[0], p.Op1, v[1], p.Op2, v[2])
		return ok && got == v[3]
	case ShapeB:
		got, ok := eval(v[1], p.Op1, v[2], p.Op2, v[3])
		return ok && got == v[0]
	case ShapeC:
		left, ok := apply(v[0], p.Op1, v[1])
		if !ok {
			return false
		}
		right, ok := apply(v[2], p.Op2, v[3])
		return ok && left == right
	}
	return false
}

// apply computes a∘b. Division must be exact and by a non-zero divisor.
func apply(a int, op Operator, b int) (int, bool) {
	switch op {
	case Add:
		return a + b, true
	case Sub:
		return a - b, true
	case Mul:
		return a * b, true
	case Div:
		if b == 0 || a%b != 0 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

// eval computes a op1 b op2 c with * and / binding tighter than + and -.
func eval(a int, op1 Operator, b int, op2 Operator, c int) (int, bool) {
	if op2.binding() > op1.binding() {
		t, ok := apply(b, op2, c)
		if !ok {
			return 0, false
		}
		return apply(a, op1, t)
	}
	t, ok := apply(a, op1, b)
	if !ok {
		return 0, false
	}
	return apply(t, op2, c)
}

// inverse solves a op x = target for x.
func inverse(a int, op Operator, target int) (int, bool) {
	switch op {
	case Add:
		return target - a, true
	case Sub:
		return a - target, true
	case Mul:
		if a == 0 || target%a != 0 {
			return 0, false
		}
		return target / a, true
	case Div:
		if target == 0 || a%target != 0 {
			return 0, false
		}
		x := a / target
		if got, ok := apply(a, Div, x); !ok || got != target {
			return 0, false
		}
		return x, true
	}
	return 0, false
}

// Equation renders the equation with placeholders, e.g. P1+P2-P3=P4.
func (p *Puzzle) Equation() string {
	o1, o2 := p.Op1.String(), p.Op2.String()
	switch p.Shape {
	case ShapeB:
		return "P1=P2" + o1 + "P3" + o2 + "P4"
	case ShapeC:
		return "P1" + o1 + "P2=P3" + o2 + "P4"
	default:
		return "P1" + o1 + "P2" + o2 + "P3=P4"
	}
}

func (p *Puzzle) term(m int) string {
	c := p.Solution[m]
	return "P" + strconv.Itoa(m+1) + "[" + strconv.Itoa(c.Row) + "," + strconv.Itoa(c.Col) + "]=" + strconv.Itoa(p.Values[m])
}

// SolutionText renders every unknown's cell and value in equation order.
func (p *Puzzle) SolutionText() string {
	o1, o2 := p.Op1.String(), p.Op2.String()
	var parts []string
	switch p.Shape {
	case ShapeB:
		parts = []string{p.term(0), "=", p.term(1), o1, p.term(2), o2, p.term(3)}
	case ShapeC:
		parts = []string{p.term(0), o1, p.term(1), "=", p.term(2), o2, p.term(3)}
	default:
		parts = []string{p.term(0), o1, p.term(1), o2, p.term(2), "=", p.term(3)}
	}
	return strings.Join(parts, " ")
}

// View returns the matrices as seen by slot, with its own matrix hidden.
func (p *Puzzle) View(slot int) []protocol.MatrixView {
	views := make([]protocol.MatrixView, Players)
	for m := range Players {
		if m == slot {
			views[m] = protocol.MatrixView{Hidden: true}
			continue
		}
		views[m] = protocol.MatrixView{Cells: p.Matrices[m].Flatten()}
	}
	return views
}

// Verify reports whether every occupied slot picked its solution cell.
// Vacant slots are ignored unless strict is set, in which case any vacancy
// fails the round.
func Verify(p *Puzzle, answers [Players]Cell, occupied [Players]bool, strict bool) bool {
	for m := range Players {
		if !occupied[m] {
			if strict {
				return false
			}
			continue
		}
		if answers[m] != p.Solution[m] {
			return false
		}
	}
	return true
}
