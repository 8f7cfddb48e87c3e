// Package partitions describes how a global triangulation is split into
// domains and moves interface data between the domain meshes.
package partitions

import (
	"errors"
	"fmt"
)

var (
	// ErrLayout indicates an inconsistent domain layout.
	ErrLayout = errors.New("partitions: invalid layout")

	// ErrConnector indicates domain meshes that cannot be connected.
	ErrConnector = errors.New("partitions: invalid interface")
)

// Partition is the set of global triangles tagged with one domain id
type Partition struct {
	ID int // Domain tag as found in the mesh file

	Elements    []int // Global triangle indices, ascending
	NumElements int
}

// DomainLayout manages the decomposition of a tagged mesh
type DomainLayout struct {
	// Partitions in ascending domain id order
	Partitions []Partition

	KpartMax      int // max(NumElements) across all partitions
	TotalElements int
	NumPartitions int

	// Element to partition index: element k belongs to Partitions[EToP[k]]
	EToP []int
}

// GetPartition returns the partition index containing element k
func (dl *DomainLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(dl.EToP) {
		return -1
	}
	return dl.EToP[elementID]
}

// PartitionOf returns the partition index of a domain id
func (dl *DomainLayout) PartitionOf(domainID int) (int, bool) {
	for i, p := range dl.Partitions {
		if p.ID == domainID {
			return i, true
		}
	}
	return -1, false
}

// DomainIDs returns the domain ids in partition order
func (dl *DomainLayout) DomainIDs() []int {
	ids := make([]int, len(dl.Partitions))
	for i, p := range dl.Partitions {
		ids[i] = p.ID
	}
	return ids
}

// ValidateLayout checks partition consistency
func (dl *DomainLayout) ValidateLayout() error {
	if dl.NumPartitions != len(dl.Partitions) {
		return fmt.Errorf("%w: NumPartitions %d != %d partitions", ErrLayout, dl.NumPartitions, len(dl.Partitions))
	}
	if dl.TotalElements != len(dl.EToP) {
		return fmt.Errorf("%w: TotalElements %d != %d element tags", ErrLayout, dl.TotalElements, len(dl.EToP))
	}
	actualMax, total := 0, 0
	for i, p := range dl.Partitions {
		if i > 0 && p.ID <= dl.Partitions[i-1].ID {
			return fmt.Errorf("%w: domain %d listed after domain %d", ErrLayout, p.ID, dl.Partitions[i-1].ID)
		}
		if p.NumElements != len(p.Elements) || p.NumElements == 0 {
			return fmt.Errorf("%w: domain %d: NumElements %d with %d elements", ErrLayout, p.ID, p.NumElements, len(p.Elements))
		}
		for _, k := range p.Elements {
			if dl.GetPartition(k) != i {
				return fmt.Errorf("%w: element %d listed in domain %d but mapped to partition %d",
					ErrLayout, k, p.ID, dl.GetPartition(k))
			}
		}
		actualMax = max(actualMax, p.NumElements)
		total += p.NumElements
	}
	if actualMax != dl.KpartMax {
		return fmt.Errorf("%w: computed KpartMax %d != stored KpartMax %d", ErrLayout, actualMax, dl.KpartMax)
	}
	if total != dl.TotalElements {
		return fmt.Errorf("%w: partitions hold %d of %d elements", ErrLayout, total, dl.TotalElements)
	}
	return nil
}
