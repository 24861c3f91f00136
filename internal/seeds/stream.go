package seeds

import "math/big"

// ShareStream draws private secret shares from an object's share stream seed.
// Draws are indexed rather than chained so a stream can resume at any stored
// index without replaying earlier draws.
type ShareStream struct {
	seed  *big.Int
	index uint64
}

// NewShareStream opens the share stream of seed, positioned at start
func NewShareStream(seed *big.Int, start uint64) *ShareStream {
	return &ShareStream{seed: new(big.Int).Set(seed), index: start}
}

// Next returns the draw at the current index and advances the stream
func (s *ShareStream) Next() *big.Int {
	msg := make([]byte, 0, 32+len(shareTag)+8)
	msg = append(msg, pad32(s.seed)...)
	msg = append(msg, []byte(shareTag)...)
	msg = appendIndex(msg, s.index)
	s.index++
	return HashToScalar(msg)
}

// Draw returns the next n draws
func (s *ShareStream) Draw(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

// Index returns the index the next draw will use
func (s *ShareStream) Index() uint64 {
	return s.index
}
