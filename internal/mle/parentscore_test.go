package mle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/mle/internal/meshaddr"
)

func TestPartitionIsBetter(t *testing.T) {
	current := meshaddr.LeaderData{Weighting: 64, PartitionID: 100}

	tests := []struct {
		name      string
		candidate meshaddr.LeaderData
		want      bool
	}{
		{"higher weight wins", meshaddr.LeaderData{Weighting: 65, PartitionID: 1}, true},
		{"lower weight loses", meshaddr.LeaderData{Weighting: 63, PartitionID: 999}, false},
		{"equal weight, higher partition ID wins", meshaddr.LeaderData{Weighting: 64, PartitionID: 101}, true},
		{"equal weight, lower partition ID loses", meshaddr.LeaderData{Weighting: 64, PartitionID: 99}, false},
		{"identical is not better", current, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, partitionIsBetter(tt.candidate, current))
		})
	}
}

func TestParentRankLess(t *testing.T) {
	low := parentRank{weighting: 10, partitionID: 5, connectivity: 3}
	highWeight := parentRank{weighting: 20, partitionID: 1, connectivity: 0}
	highPartition := parentRank{weighting: 10, partitionID: 6, connectivity: 0}
	sameRank := parentRank{weighting: 10, partitionID: 5, connectivity: 3}

	require.True(t, low.less(highWeight), "weighting dominates partition ID and connectivity")
	require.True(t, low.less(highPartition), "partition ID breaks a weighting tie")
	require.False(t, low.less(sameRank), "identical ranks are never less than each other")

	require.True(t, parentRank{weighting: 1, connectivity: 0}.less(parentRank{weighting: 1, connectivity: 1}),
		"connectivity only breaks a weighting+partition tie")
}

func TestLinkQualityFromMargin(t *testing.T) {
	require.Equal(t, uint8(3), linkQualityFromMargin(21))
	require.Equal(t, uint8(2), linkQualityFromMargin(11))
	require.Equal(t, uint8(1), linkQualityFromMargin(3))
	require.Equal(t, uint8(0), linkQualityFromMargin(2))
	require.Equal(t, uint8(0), linkQualityFromMargin(-5))
}

func TestConnectivityMetric(t *testing.T) {
	got := connectivityMetric(3, 1, 2, 4)
	require.Equal(t, uint32(3)<<24|uint32(4)<<16|uint32(2)<<8|uint32(1), got)
}

func TestConnectivityTLVRoundTrip(t *testing.T) {
	encoded := encodeConnectivityTLV(nil, 1, 2, 3)
	lq1, lq2, lq3, ok := decodeConnectivityTLV(encoded)
	require.True(t, ok)
	require.Equal(t, uint8(1), lq1)
	require.Equal(t, uint8(2), lq2)
	require.Equal(t, uint8(3), lq3)
}

func TestBestParent_Empty(t *testing.T) {
	_, ok := bestParent(nil)
	require.False(t, ok)
}

func TestBestParent_PicksHighestRank(t *testing.T) {
	candidates := []parentCandidate{
		{rloc16: meshaddr.NewAddress16(1, 0), leaderData: meshaddr.LeaderData{Weighting: 10, PartitionID: 1}, connectivity: 3},
		{rloc16: meshaddr.NewAddress16(2, 0), leaderData: meshaddr.LeaderData{Weighting: 20, PartitionID: 1}, connectivity: 1},
		{rloc16: meshaddr.NewAddress16(3, 0), leaderData: meshaddr.LeaderData{Weighting: 20, PartitionID: 1}, connectivity: 2},
	}

	best, ok := bestParent(candidates)
	require.True(t, ok)
	require.Equal(t, meshaddr.NewAddress16(3, 0), best.rloc16, "highest weighting, then highest connectivity wins the tie")
}

func TestBestParent_SingleCandidate(t *testing.T) {
	candidates := []parentCandidate{
		{rloc16: meshaddr.NewAddress16(7, 0), leaderData: meshaddr.LeaderData{Weighting: 1, PartitionID: 1}},
	}

	best, ok := bestParent(candidates)
	require.True(t, ok)
	require.Equal(t, meshaddr.NewAddress16(7, 0), best.rloc16)
}
