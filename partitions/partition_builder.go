package partitions

import (
	"fmt"
	"math"
	"sort"
)

// BuildDomainLayout groups triangles by their domain tag.
func BuildDomainLayout(tags []int) (*DomainLayout, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: no elements", ErrLayout)
	}

	// Domain ids in ascending order
	seen := make(map[int]int)
	for _, d := range tags {
		seen[d]++
	}
	ids := make([]int, 0, len(seen))
	for d := range seen {
		ids = append(ids, d)
	}
	sort.Ints(ids)

	index := make(map[int]int, len(ids))
	partitions := make([]Partition, len(ids))
	for i, d := range ids {
		index[d] = i
		partitions[i] = Partition{ID: d, Elements: make([]int, 0, seen[d])}
	}

	eToP := make([]int, len(tags))
	for k, d := range tags {
		p := index[d]
		eToP[k] = p
		partitions[p].Elements = append(partitions[p].Elements, k)
		partitions[p].NumElements++
	}

	layout := &DomainLayout{
		Partitions:    partitions,
		KpartMax:      calculateKpartMax(partitions),
		TotalElements: len(tags),
		NumPartitions: len(partitions),
		EToP:          eToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid domain layout: %w", err)
	}
	return layout, nil
}

// calculateKpartMax finds maximum elements across all partitions
func calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

// PartitionStatistics computes load balance metrics
func (dl *DomainLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: dl.NumPartitions,
		MinElements:   math.MaxInt32,
		AvgElements:   float64(dl.TotalElements) / float64(dl.NumPartitions),
	}
	for _, p := range dl.Partitions {
		stats.MinElements = min(stats.MinElements, p.NumElements)
		stats.MaxElements = max(stats.MaxElements, p.NumElements)
	}
	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	return stats
}
