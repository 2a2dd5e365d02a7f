// internal/game/scoring.go
package game

// faceCounts tallies the dice by face. Values outside 1..6 are ignored.
func faceCounts(dice []int) (counts [7]int, distinct int) {
	for _, v := range dice {
		if v < 1 || v > 6 {
			continue
		}
		if counts[v] == 0 {
			distinct++
		}
		counts[v]++
	}
	return counts, distinct
}

// runs lists the qualifying partial straights, longest first.
var (
	fiveRuns = [][]int{{1, 2, 3, 4, 5}, {2, 3, 4, 5, 6}}
	fourRuns = [][]int{{1, 2, 3, 4}, {2, 3, 4, 5}, {3, 4, 5, 6}}
)

// containsRun reports whether every face of run appears at least once.
func containsRun(counts [7]int, run []int) bool {
	for _, f := range run {
		if counts[f] == 0 {
			return false
		}
	}
	return true
}

func isExactRun(dice []int, counts [7]int, distinct int, runs [][]int) bool {
	for _, run := range runs {
		if len(dice) == len(run) && distinct == len(run) && containsRun(counts, run) {
			return true
		}
	}
	return false
}

func isThreePairs(dice []int, counts [7]int, distinct int) bool {
	if len(dice) != 6 || distinct != 3 {
		return false
	}
	for f := 1; f <= 6; f++ {
		if counts[f] != 0 && counts[f] != 2 {
			return false
		}
	}
	return true
}

func isTwoTriplets(dice []int, counts [7]int, distinct int) bool {
	if len(dice) != 6 || distinct != 2 {
		return false
	}
	for f := 1; f <= 6; f++ {
		if counts[f] != 0 && counts[f] != 3 {
			return false
		}
	}
	return true
}

// CalculateScore returns the point value of a set of die faces under the given rules.
// Whole-set combinations are checked first; the first match wins. Everything else is
// scored face by face.
func CalculateScore(dice []int, rules RuleConfig) int {
	if len(dice) == 0 {
		return 0
	}
	counts, distinct := faceCounts(dice)

	if len(dice) == 6 && distinct == 6 {
		return rules.Straight
	}
	if len(dice) == 6 && counts[1] == 6 {
		return rules.SixOnes
	}
	if len(dice) == 6 && distinct == 1 {
		return rules.SixOfAKind
	}
	if rules.Enable5Straight && isExactRun(dice, counts, distinct, fiveRuns) {
		return rules.FiveStraight
	}
	if rules.Enable4Straight && isExactRun(dice, counts, distinct, fourRuns) {
		return rules.FourStraight
	}
	if rules.EnableThreePairs && isThreePairs(dice, counts, distinct) {
		return rules.ThreePairs
	}
	if rules.EnableTwoTriplets && isTwoTriplets(dice, counts, distinct) {
		return rules.TwoTriplets
	}

	score := 0
	for face := 1; face <= 6; face++ {
		n := counts[face]
		switch {
		case n == 0:
		case n < 3:
			score += n * rules.singleValue(face)
		case n == 3:
			score += rules.Triples[face]
		case n == 4:
			score += rules.Triples[face] * rules.FourKindMultiplier
		case n == 5:
			score += rules.Triples[face] * rules.FiveKindMultiplier
		default:
			// Six of one face always returns above; kept so the doubling progression
			// stays complete if that branch is ever made conditional.
			score += rules.Triples[face] * rules.SixKindMultiplier
		}
	}
	return score
}

// HasPossibleMoves reports whether a roll offers anything to keep. A false result is a
// farkle (toxic twos aside, which the turn machine checks separately).
func HasPossibleMoves(dice []int, rules RuleConfig) bool {
	counts, distinct := faceCounts(dice)

	if counts[1] > 0 || counts[5] > 0 {
		return true
	}
	for face := 1; face <= 6; face++ {
		if counts[face] >= 3 {
			return true
		}
	}
	if len(dice) == 6 && distinct == 6 {
		return true
	}
	if rules.EnableThreePairs && isThreePairs(dice, counts, distinct) {
		return true
	}
	if rules.Enable5Straight {
		for _, run := range fiveRuns {
			if containsRun(counts, run) {
				return true
			}
		}
	}
	if rules.Enable4Straight {
		for _, run := range fourRuns {
			if containsRun(counts, run) {
				return true
			}
		}
	}
	return false
}

// IsScoringSelection reports whether every die of a selection contributes to its score.
// A selection that scores but carries a dead die, like [1,2], is not legal.
func IsScoringSelection(dice []int, rules RuleConfig) bool {
	if CalculateScore(dice, rules) <= 0 {
		return false
	}
	counts, distinct := faceCounts(dice)
	if countAll(counts) != len(dice) {
		// out-of-range faces never contribute
		return false
	}

	if len(dice) == 6 && distinct == 6 {
		return true
	}
	if rules.EnableThreePairs && isThreePairs(dice, counts, distinct) {
		return true
	}
	if rules.Enable5Straight && isExactRun(dice, counts, distinct, fiveRuns) {
		return true
	}
	if rules.Enable4Straight && isExactRun(dice, counts, distinct, fourRuns) {
		return true
	}

	for face := 1; face <= 6; face++ {
		if counts[face] == 0 || face == 1 || face == 5 {
			continue
		}
		if counts[face] < 3 {
			return false
		}
	}
	return true
}

func countAll(counts [7]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
