package shootout

import "strings"

// DirectionsMatch reports whether a save covers a shot. Only an exact match
// after trimming and case folding counts; "Left High" does not cover "Left Low".
// Blank directions are rejected before a kick is resolved.
func DirectionsMatch(shot, save string) bool {
	return strings.EqualFold(strings.TrimSpace(shot), strings.TrimSpace(save))
}

// boundaryVerdict is the decision taken when a regulation round closes.
type boundaryVerdict int

const (
	verdictContinue boundaryVerdict = iota
	verdictEnd
	verdictSuddenDeath
)

// evaluateBoundary applies the end-of-game rule after round has been
// incremented past the round that just finished.
//
// The mercy arithmetic is kept as written: a player already at the win score
// has no turns left, otherwise 3 - roundsPlayed/2.
func evaluateBoundary(round, scoreA, scoreB int) boundaryVerdict {
	if round > regulationRounds && scoreA == scoreB {
		return verdictSuddenDeath
	}
	diff := scoreA - scoreB
	if diff < 0 {
		diff = -diff
	}
	roundsPlayed := round - 1
	turnsLeftA := winScore - roundsPlayed/2
	if scoreA >= winScore {
		turnsLeftA = 0
	}
	turnsLeftB := winScore - roundsPlayed/2
	if scoreB >= winScore {
		turnsLeftB = 0
	}

	switch {
	case turnsLeftA < diff && scoreA < scoreB:
		return verdictEnd
	case turnsLeftB < diff && scoreB < scoreA:
		return verdictEnd
	case (round > regulationRounds || scoreA >= winScore || scoreB >= winScore) && scoreA != scoreB:
		return verdictEnd
	}
	return verdictContinue
}
