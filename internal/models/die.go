package models

// Die is one die on the table. Dice are recreated on every roll; no identity survives it.
type Die struct {
	ID       string `json:"id"`
	Value    int    `json:"value"`
	Selected bool   `json:"selected"`
}

// DieValues returns the faces of the given dice.
func DieValues(dice []Die) []int {
	vals := make([]int, len(dice))
	for i, d := range dice {
		vals[i] = d.Value
	}
	return vals
}
