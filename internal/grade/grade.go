// Package grade holds the fixed bouldering grade scale used for ranking.
package grade

// Scale lists the known grades from easiest to hardest.
var Scale = []string{
	"4A", "4B", "4C",
	"5A", "5B", "5C",
	"6A", "6A+", "6B", "6B+", "6C", "6C+",
	"7A", "7B", "7C",
	"8A", "8A+", "8B", "8B+", "8C", "8C+",
	"9A",
}

var ranks = func() map[string]int {
	m := make(map[string]int, len(Scale))
	for i, g := range Scale {
		m[g] = i
	}
	return m
}()

// Rank returns the position of g on the scale, or -1 if g is not a known grade.
func Rank(g string) int {
	if r, ok := ranks[g]; ok {
		return r
	}
	return -1
}

// Known reports whether g is on the scale.
func Known(g string) bool {
	_, ok := ranks[g]
	return ok
}

// Compare orders two grades by rank. Unknown grades sort below every known one.
func Compare(a, b string) int {
	ra, rb := Rank(a), Rank(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

// Values returns a copy of the scale as a []any, for validation rules.
func Values() []any {
	out := make([]any, len(Scale))
	for i, g := range Scale {
		out[i] = g
	}
	return out
}
