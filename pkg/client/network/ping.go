package network

import (
	"sort"
	"time"
)

const (
	maxRecentRTTs    = 10
	minOutlierRTT    = 20 * time.Millisecond
	outlierRTTFactor = 2
)

// removeOutlierRTTs removes outlier RTTs from the recent RTTs.
// An outlier RTT is defined as an RTT that is greater than 2 times the median RTT
// and is also greater than 20ms.
func removeOutlierRTTs(recentRTTs []time.Duration) []time.Duration {
	result := make([]time.Duration, 0, len(recentRTTs))
	median := medianRTT(recentRTTs)
	for _, rtt := range recentRTTs {
		if rtt > outlierRTTFactor*median && rtt > minOutlierRTT {
			continue
		}
		result = append(result, rtt)
	}
	return result
}

// medianRTT returns the median RTT from a slice of RTTs.
func medianRTT(recentRTTs []time.Duration) time.Duration {
	if len(recentRTTs) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(recentRTTs))
	copy(sorted, recentRTTs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	if len(sorted)%2 == 0 {
		return (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return sorted[len(sorted)/2]
}

// averageRTT keeps the last samples and averages them without outliers.
func averageRTT(recentRTTs []time.Duration, rtt time.Duration) ([]time.Duration, time.Duration) {
	recentRTTs = append(recentRTTs, rtt)
	for len(recentRTTs) > maxRecentRTTs {
		recentRTTs = recentRTTs[1:]
	}

	samples := removeOutlierRTTs(recentRTTs)
	if len(samples) == 0 {
		return recentRTTs, 0
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return recentRTTs, sum / time.Duration(len(samples))
}
