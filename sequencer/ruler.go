package sequencer

// NumRulers is the size of the ruler catalogue.
const NumRulers = 10

// MaxRulerOrder is the largest mark count of any catalogue ruler.
const MaxRulerOrder = 6

// Ruler is a perfect (Golomb) ruler used as a rhythm template. Marks are
// strictly increasing and start at 0.
type Ruler struct {
	marks [MaxRulerOrder]int
	order int
}

// Order returns the number of marks.
func (r Ruler) Order() int {
	return r.order
}

// Length returns the largest mark.
func (r Ruler) Length() int {
	return r.marks[r.order-1]
}

// Mark returns the j-th mark position.
func (r Ruler) Mark(j int) int {
	return r.marks[j]
}

// Marks returns a copy of the mark positions.
func (r Ruler) Marks() []int {
	out := make([]int, r.order)
	copy(out, r.marks[:r.order])
	return out
}

func ruler(marks ...int) Ruler {
	r := Ruler{order: len(marks)}
	copy(r.marks[:], marks)
	return r
}

// Optimal rulers of order 1 through 6, with the alternative order 5 and
// order 6 solutions kept as extra templates.
var rulers = [NumRulers]Ruler{
	ruler(0),
	ruler(0, 1),
	ruler(0, 1, 3),
	ruler(0, 1, 4, 6),
	ruler(0, 1, 4, 9, 11),
	ruler(0, 2, 7, 8, 11),
	ruler(0, 1, 4, 10, 12, 17),
	ruler(0, 1, 4, 10, 15, 17),
	ruler(0, 1, 8, 11, 13, 17),
	ruler(0, 1, 8, 12, 14, 17),
}

// RulerAt returns catalogue ruler i, clamping i into 0..NumRulers-1.
func RulerAt(i int) Ruler {
	if i < 0 {
		i = 0
	}
	if i >= NumRulers {
		i = NumRulers - 1
	}
	return rulers[i]
}
