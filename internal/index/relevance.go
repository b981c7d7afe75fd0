package index

// RelevanceGate filters retrieval hits by a similarity threshold.
type RelevanceGate struct {
	Threshold float64
	TopK      int
}

// Evaluate keeps hits at or above the threshold. Hits must already be
// sorted by descending score. Relevant is false when nothing clears the
// bar, including the empty-index case.
func (g RelevanceGate) Evaluate(hits []ScoredChunk) (kept []ScoredChunk, relevant bool) {
	for _, h := range hits {
		if h.Score >= g.Threshold {
			kept = append(kept, h)
		}
		if g.TopK > 0 && len(kept) >= g.TopK {
			break
		}
	}
	return kept, len(kept) > 0
}
