// Package align diffs a normalized reference phoneme sequence against
// a recognized hypothesis sequence and produces a 0..100 score with a
// per-symbol edit script.
package align

import "sort"

// Status tags one edit-script operation.
type Status string

const (
	StatusMatch        Status = "match"
	StatusSubstitution Status = "substitution"
	StatusMissing      Status = "missing"
	StatusInsertion    Status = "insertion"
)

// Symbol is one normalized hypothesis unit, optionally carrying the
// confidence and timing of the recognized segment it came from.
type Symbol struct {
	Value      string
	Confidence float64
	StartMS    int
	EndMS      int
	HasTiming  bool
}

// Op is a single edit-script entry. Phoneme is the reference side,
// User the hypothesis side; either may be empty depending on status.
// Confidence and timing are present only when a hypothesis symbol
// participates.
type Op struct {
	Phoneme    string  `json:"phoneme"`
	Status     Status  `json:"status"`
	User       string  `json:"user"`
	Confidence float64 `json:"confidence,omitempty"`
	StartMS    int     `json:"start_ms,omitempty"`
	EndMS      int     `json:"end_ms,omitempty"`
}

// ScoreResult is the terminal scorer output.
type ScoreResult struct {
	Score   int  `json:"score"`
	Details []Op `json:"details"`
}

// block is one maximal common run: a[AStart:AStart+Size] ==
// b[BStart:BStart+Size].
type block struct {
	AStart, BStart, Size int
}

// longestMatch finds the longest matching block within
// a[alo:ahi] / b[blo:bhi], preferring the earliest reference start and
// then the earliest hypothesis start on equal lengths.
func longestMatch(a []string, b2j map[string][]int, alo, ahi, blo, bhi int) block {
	best := block{AStart: alo, BStart: blo}
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > best.Size {
				best = block{AStart: i - k + 1, BStart: j - k + 1, Size: k}
			}
		}
		j2len = newJ2len
	}
	return best
}

// matchingBlocks partitions both sequences into maximal non-overlapping
// common blocks, greedily by block length.
func matchingBlocks(a []string, b []Symbol) []block {
	b2j := make(map[string][]int, len(b))
	for j, sym := range b {
		b2j[sym.Value] = append(b2j[sym.Value], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(a), 0, len(b)}}
	var blocks []block
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		m := longestMatch(a, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if m.Size == 0 {
			continue
		}
		blocks = append(blocks, m)
		queue = append(queue,
			span{s.alo, m.AStart, s.blo, m.BStart},
			span{m.AStart + m.Size, s.ahi, m.BStart + m.Size, s.bhi},
		)
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].AStart != blocks[j].AStart {
			return blocks[i].AStart < blocks[j].AStart
		}
		return blocks[i].BStart < blocks[j].BStart
	})
	return blocks
}

// Score aligns the reference against the hypothesis. The score is
// floor(2M/(R+H)·100) where M is the total matched symbol count; two
// empty sequences compare as identical and score 100.
func Score(reference []string, hypothesis []Symbol) ScoreResult {
	r, h := len(reference), len(hypothesis)
	if r == 0 && h == 0 {
		return ScoreResult{Score: 100, Details: []Op{}}
	}

	blocks := matchingBlocks(reference, hypothesis)

	matched := 0
	for _, b := range blocks {
		matched += b.Size
	}
	score := int(2 * float64(matched) / float64(r+h) * 100)

	details := make([]Op, 0, r+h)
	ai, bi := 0, 0
	emitGap := func(ahi, bhi int) {
		refLen, hypLen := ahi-ai, bhi-bi
		switch {
		case refLen > 0 && hypLen > 0:
			// Replacement run pairs positions index-wise; the longer
			// side's tail pairs with an empty counterpart.
			n := refLen
			if hypLen > n {
				n = hypLen
			}
			for k := 0; k < n; k++ {
				op := Op{Status: StatusSubstitution}
				if k < refLen {
					op.Phoneme = reference[ai+k]
				}
				if k < hypLen {
					applyHypothesis(&op, hypothesis[bi+k])
				}
				details = append(details, op)
			}
		case refLen > 0:
			for k := 0; k < refLen; k++ {
				details = append(details, Op{Phoneme: reference[ai+k], Status: StatusMissing})
			}
		case hypLen > 0:
			for k := 0; k < hypLen; k++ {
				op := Op{Status: StatusInsertion}
				applyHypothesis(&op, hypothesis[bi+k])
				details = append(details, op)
			}
		}
		ai, bi = ahi, bhi
	}

	for _, b := range blocks {
		emitGap(b.AStart, b.BStart)
		for k := 0; k < b.Size; k++ {
			op := Op{Phoneme: reference[b.AStart+k], Status: StatusMatch}
			applyHypothesis(&op, hypothesis[b.BStart+k])
			details = append(details, op)
		}
		ai, bi = b.AStart+b.Size, b.BStart+b.Size
	}
	emitGap(r, h)

	return ScoreResult{Score: score, Details: details}
}

func applyHypothesis(op *Op, sym Symbol) {
	op.User = sym.Value
	op.Confidence = sym.Confidence
	if sym.HasTiming {
		op.StartMS = sym.StartMS
		op.EndMS = sym.EndMS
	}
}

// PlainSymbols wraps bare normalized strings as hypothesis symbols
// without confidence or timing.
func PlainSymbols(values []string) []Symbol {
	out := make([]Symbol, len(values))
	for i, v := range values {
		out[i] = Symbol{Value: v}
	}
	return out
}
