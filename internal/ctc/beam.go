package ctc

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/phonalabs/phona-core/internal/logmath"
	"github.com/phonalabs/phona-core/internal/phoneme"
)

// DefaultBeamWidth is used when the configured width is not positive.
const DefaultBeamWidth = 10

// SegmentTrace records the contiguous frame range one prefix symbol
// occupies on its best-known path. Frame bounds are inclusive.
type SegmentTrace struct {
	Symbol int
	Start  int
	End    int
}

// DecoderConfig controls the beam search.
type DecoderConfig struct {
	BeamWidth int
	Refine    RefineConfig
	// MaxFrames bounds the number of frames decoded; zero means no
	// budget. Exceeding frames are not consumed, the decode ends with
	// whatever the beam holds at the budget boundary.
	MaxFrames int
}

// Result is the winning collapsed prefix with its timing trace and the
// total log-probability mass of all paths collapsing to it.
type Result struct {
	Prefix []int
	Trace  []SegmentTrace
	Score  float64
}

// Decoder runs CTC prefix beam search over a frame log-probability
// matrix. A Decoder is stateless across calls; each Decode owns its
// beam exclusively, so one Decoder may serve concurrent decodes.
type Decoder struct {
	vocab *phoneme.Vocabulary
	cfg   DecoderConfig
}

func NewDecoder(vocab *phoneme.Vocabulary, cfg DecoderConfig) *Decoder {
	if cfg.BeamWidth <= 0 {
		cfg.BeamWidth = DefaultBeamWidth
	}
	return &Decoder{vocab: vocab, cfg: cfg}
}

// beamEntry is keyed by a collapsed prefix and tracks the blank-ending
// and non-blank-ending path masses plus the segment trace of the
// dominant contributing path.
type beamEntry struct {
	prefix      []int
	b, nb       float64
	segs        []SegmentTrace
	seq         int
	bestContrib float64
}

func (e *beamEntry) total() float64 { return logmath.LogAdd(e.b, e.nb) }

// consider keeps the segment trace from whichever merged path carries
// the dominant probability.
func (e *beamEntry) consider(contrib float64, segs []SegmentTrace) {
	if contrib > e.bestContrib {
		e.bestContrib = contrib
		e.segs = segs
	}
}

func prefixKey(prefix []int) string {
	var sb strings.Builder
	for i, s := range prefix {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(s))
	}
	return sb.String()
}

func appendPrefix(prefix []int, symbol int) []int {
	out := make([]int, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = symbol
	return out
}

func appendSeg(segs []SegmentTrace, symbol, frame int) []SegmentTrace {
	out := make([]SegmentTrace, len(segs)+1)
	copy(out, segs)
	out[len(segs)] = SegmentTrace{Symbol: symbol, Start: frame, End: frame}
	return out
}

func extendLast(segs []SegmentTrace, frame int) []SegmentTrace {
	out := append([]SegmentTrace(nil), segs...)
	if n := len(out); n > 0 {
		out[n-1].End = frame
	}
	return out
}

// Decode consumes the matrix frame by frame and returns the winning
// prefix. Zero frames is a valid, empty decode. Cancellation is
// checked between frames only; a single frame's expansion always runs
// to completion.
func (d *Decoder) Decode(ctx context.Context, frames FrameLogProbs) (Result, error) {
	if err := frames.Validate(d.vocab.Size()); err != nil {
		return Result{}, err
	}

	blank := d.vocab.Blank()
	beam := []*beamEntry{{prefix: nil, b: 0, nb: logmath.LogZero, bestContrib: logmath.LogZero}}
	seqCounter := 1

	numFrames := frames.NumFrames()
	if d.cfg.MaxFrames > 0 && numFrames > d.cfg.MaxFrames {
		numFrames = d.cfg.MaxFrames
	}
	topK := 2 * d.cfg.BeamWidth
	if topK > 20 {
		topK = 20
	}

	for t := 0; t < numFrames; t++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		row := RefineFrame(frames.Rows[t], blank, d.cfg.Refine)
		candidates := topIndices(row, topK)

		next := make(map[string]*beamEntry, len(beam)*(topK+1))
		var order []*beamEntry

		// target fetches or creates the fold entry for a prefix.
		// inheritSeq carries the first-seen order of prefixes that
		// already existed in the beam; fresh prefixes draw a new one.
		target := func(prefix []int, inheritSeq int) *beamEntry {
			key := prefixKey(prefix)
			if e, ok := next[key]; ok {
				if inheritSeq >= 0 && inheritSeq < e.seq {
					e.seq = inheritSeq
				}
				return e
			}
			seq := inheritSeq
			if seq < 0 {
				seq = seqCounter
				seqCounter++
			}
			e := &beamEntry{
				prefix:      prefix,
				b:           logmath.LogZero,
				nb:          logmath.LogZero,
				seq:         seq,
				bestContrib: logmath.LogZero,
			}
			next[key] = e
			order = append(order, e)
			return e
		}

		for _, entry := range beam {
			mass := entry.total()

			// Blank extends the same prefix; no segment starts or grows.
			if logBlank := row[blank]; logBlank > logmath.LogZero {
				tgt := target(entry.prefix, entry.seq)
				contrib := mass + logBlank
				tgt.b = logmath.LogAdd(tgt.b, contrib)
				tgt.consider(contrib, entry.segs)
			}

			last := -1
			if n := len(entry.prefix); n > 0 {
				last = entry.prefix[n-1]
			}

			for _, sym := range candidates {
				if sym == blank {
					continue
				}
				logp := row[sym]
				if logp <= logmath.LogZero {
					continue
				}

				if sym == last {
					// Same sound continuing with no blank in between:
					// only the non-blank mass extends, and the open
					// segment grows by this frame.
					if entry.nb > logmath.LogZero {
						tgt := target(entry.prefix, entry.seq)
						contrib := entry.nb + logp
						tgt.nb = logmath.LogAdd(tgt.nb, contrib)
						tgt.consider(contrib, extendLast(entry.segs, t))
					}
					// Repeat after an intervening blank starts a new
					// prefix instance from the blank mass alone.
					if entry.b > logmath.LogZero {
						tgt := target(appendPrefix(entry.prefix, sym), -1)
						contrib := entry.b + logp
						tgt.nb = logmath.LogAdd(tgt.nb, contrib)
						tgt.consider(contrib, appendSeg(entry.segs, sym, t))
					}
					continue
				}

				// New symbol always produces a longer prefix and opens
				// a fresh segment at this frame.
				tgt := target(appendPrefix(entry.prefix, sym), -1)
				contrib := mass + logp
				tgt.nb = logmath.LogAdd(tgt.nb, contrib)
				tgt.consider(contrib, appendSeg(entry.segs, sym, t))
			}
		}

		sortBeam(order)
		if len(order) > d.cfg.BeamWidth {
			order = order[:d.cfg.BeamWidth]
		}
		beam = order
		if len(beam) == 0 {
			// Every candidate mass underflowed; fall back to the empty
			// decode rather than erroring.
			beam = []*beamEntry{{prefix: nil, b: 0, nb: logmath.LogZero, bestContrib: logmath.LogZero}}
		}
	}

	sortBeam(beam)
	best := beam[0]
	return Result{
		Prefix: append([]int(nil), best.prefix...),
		Trace:  append([]SegmentTrace(nil), best.segs...),
		Score:  best.total(),
	}, nil
}

func sortBeam(entries []*beamEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].total(), entries[j].total()
		if ti != tj {
			return ti > tj
		}
		return entries[i].seq < entries[j].seq
	})
}
