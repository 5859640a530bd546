package pingpong

// Standard table-tennis game rules: first to 11 points, but the winner must
// lead by 2.
const (
	WinningPoints = 11
	WinningMargin = 2
)

// IsWin reports whether the submitted scores decide a game. It is evaluated
// purely from the scores, not incrementally enforced: 12-10 and 15-13 are
// wins, 11-10 is still in progress.
func IsWin(score1, score2 int) bool {
	hi, lo := score1, score2
	if hi < lo {
		hi, lo = lo, hi
	}
	return hi >= WinningPoints && hi-lo >= WinningMargin
}
