package mle

import (
	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mlecodec"
)

// partitionIsBetter reports whether candidate names a strictly better
// partition than current: higher leader weight wins, ties
// broken by higher partition ID.
func partitionIsBetter(candidate, current meshaddr.LeaderData) bool {
	if candidate.Weighting != current.Weighting {
		return candidate.Weighting > current.Weighting
	}
	return candidate.PartitionID > current.PartitionID
}

// linkQualityFromMargin maps a measured link margin, in dB, to the 0..=3
// link-quality-indicator scale used throughout MLE.
func linkQualityFromMargin(marginDB int) uint8 {
	switch {
	case marginDB > 20:
		return 3
	case marginDB > 10:
		return 2
	case marginDB > 2:
		return 1
	default:
		return 0
	}
}

// clampMarginToUint8 saturates a signed margin reading to the TLV's
// unsigned single-byte wire range.
func clampMarginToUint8(marginDB int) uint8 {
	switch {
	case marginDB < 0:
		return 0
	case marginDB > 255:
		return 255
	default:
		return uint8(marginDB)
	}
}

// connectivityMetric folds the two-way link quality to a candidate
// together with how well-connected its partition is into the single
// comparable value §4.6 scores parents by: the high byte is the link
// quality of this hop, and the remaining bytes are the candidate's own
// counts of routers it hears at quality 3, 2, and 1.
func connectivityMetric(linkQualityThisHop, lq1, lq2, lq3 uint8) uint32 {
	return uint32(linkQualityThisHop)<<24 | uint32(lq3)<<16 | uint32(lq2)<<8 | uint32(lq1)
}

// encodeConnectivityTLV appends the Connectivity TLV: router counts at
// link quality 1, 2, and 3, in that order.
func encodeConnectivityTLV(dst []byte, lq1, lq2, lq3 uint8) []byte {
	return mlecodec.AppendTLV(dst, mlecodec.TypeConnectivity, []byte{lq1, lq2, lq3})
}

// decodeConnectivityTLV reads a Connectivity TLV's router-count payload.
func decodeConnectivityTLV(tlvs []byte) (lq1, lq2, lq3 uint8, ok bool) {
	t, found := mlecodec.FindTLV(tlvs, mlecodec.TypeConnectivity)
	if !found || t.Length != 3 {
		return 0, 0, 0, false
	}
	v := tlvs[t.Offset : t.Offset+t.Length]
	return v[0], v[1], v[2], true
}

// parentRank is a candidate's (partition rank, connectivity) in a form
// directly comparable across candidates: higher is better throughout.
type parentRank struct {
	weighting    uint8
	partitionID  uint32
	connectivity uint32
}

func rankOf(p parentCandidate) parentRank {
	return parentRank{
		weighting:    p.leaderData.Weighting,
		partitionID:  p.leaderData.PartitionID,
		connectivity: p.connectivity,
	}
}

// less reports whether a ranks below b: first by partition weight, then
// partition ID (so every candidate from the best partition is preferred
// over any candidate from a worse one), and only then by the connectivity
// metric to the candidate itself.
func (a parentRank) less(b parentRank) bool {
	if a.weighting != b.weighting {
		return a.weighting < b.weighting
	}
	if a.partitionID != b.partitionID {
		return a.partitionID < b.partitionID
	}
	return a.connectivity < b.connectivity
}

// bestParent picks the highest-ranked candidate collected during a scan.
func bestParent(candidates []parentCandidate) (parentCandidate, bool) {
	if len(candidates) == 0 {
		return parentCandidate{}, false
	}

	best := candidates[0]
	bestRank := rankOf(best)
	for _, c := range candidates[1:] {
		r := rankOf(c)
		if bestRank.less(r) {
			best = c
			bestRank = r
		}
	}
	return best, true
}
