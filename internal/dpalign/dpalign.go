// Package dpalign aligns two sequences of token lists with a similarity-weighted dynamic program
// allowing 1-1, 1-2, 2-1 and 2-2 merges and free skips.
package dpalign

// SimilarityFunc scores two token lists. ok is false when the score is undefined.
type SimilarityFunc func(a, b []string) (score float64, ok bool)

// Group is one aligned block: indices into the first and second sequence.
type Group struct {
	A     []int
	B     []int
	Score float64
}

type move uint8

const (
	moveNone move = iota
	moveSkipA
	moveSkipB
	move11
	move12
	move21
	move22
)

// steps[m] is how far a move consumes from each sequence.
var steps = [...][2]int{
	moveSkipA: {1, 0},
	moveSkipB: {0, 1},
	move11:    {1, 1},
	move12:    {1, 2},
	move21:    {2, 1},
	move22:    {2, 2},
}

// Aligner holds the scoring parameters.
type Aligner struct {
	sim      SimilarityFunc
	mismatch float64
}

// New returns an Aligner. mismatch is subtracted from every aligning move; skips cost nothing.
func New(sim SimilarityFunc, mismatch float64) *Aligner {
	return &Aligner{sim: sim, mismatch: mismatch}
}

// Align returns the best-scoring groups in order. The table keeps one score and one backpointer
// per cell; the path is rebuilt once from the final cell.
func (al *Aligner) Align(a, b [][]string) []Group {
	n, m := len(a), len(b)
	w := m + 1
	score := make([]float64, (n+1)*w)
	back := make([]move, (n+1)*w)
	sims := make([]float64, (n+1)*w)

	for i := 0; i <= n; i++ {
		for j := 0; j <= m; j++ {
			if i == 0 && j == 0 {
				continue
			}
			best, bestMove, bestSim := 0.0, moveNone, 0.0
			try := func(mv move) {
				di, dj := steps[mv][0], steps[mv][1]
				if i < di || j < dj {
					return
				}
				prev := score[(i-di)*w+j-dj]
				sim, g := 0.0, 0.0
				if di > 0 && dj > 0 {
					sim = al.score(a[i-di:i], b[j-dj:j])
					g = sim - al.mismatch
				}
				if bestMove == moveNone || prev+g > best {
					best, bestMove, bestSim = prev+g, mv, sim
				}
			}
			for mv := moveSkipA; mv <= move22; mv++ {
				try(mv)
			}
			score[i*w+j] = best
			back[i*w+j] = bestMove
			sims[i*w+j] = bestSim
		}
	}

	var groups []Group
	for i, j := n, m; i > 0 || j > 0; {
		mv := back[i*w+j]
		di, dj := steps[mv][0], steps[mv][1]
		if di > 0 && dj > 0 {
			g := Group{Score: sims[i*w+j]}
			for k := i - di; k < i; k++ {
				g.A = append(g.A, k)
			}
			for k := j - dj; k < j; k++ {
				g.B = append(g.B, k)
			}
			groups = append(groups, g)
		}
		i -= di
		j -= dj
	}
	for l, r := 0, len(groups)-1; l < r; l, r = l+1, r-1 {
		groups[l], groups[r] = groups[r], groups[l]
	}
	return groups
}

// score concatenates each side's token lists and scores them; undefined counts as zero.
func (al *Aligner) score(a, b [][]string) float64 {
	s, ok := al.sim(concat(a), concat(b))
	if !ok {
		return 0
	}
	return s
}

func concat(parts [][]string) []string {
	if len(parts) == 1 {
		return parts[0]
	}
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
