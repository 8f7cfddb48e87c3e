package partitions

import (
	"fmt"
	"math/cmplx"

	"github.com/notargets/CoastalDD/mesh"
)

// InterfaceConnector manages pick and place indices between domain meshes
// that share interface vertices.
type InterfaceConnector struct {
	NumPartitions int
	DomainIDs     []int
	NumVertices   []int // Local vertices per partition

	LocalToGlobal [][]int // [partition][local] → global vertex

	// Pick/Place indices per partition pair
	PickIndices  [][]PickBuffer  // [sourcePartition][targetPartition]
	PlaceIndices [][]PlaceBuffer // [targetPartition][sourcePartition]
}

// PickBuffer contains local indices gathered to send
type PickBuffer struct {
	Indices         []int
	TargetPartition int
}

// PlaceBuffer contains local indices receiving gathered values
type PlaceBuffer struct {
	Indices         []int
	SourcePartition int
}

// NewInterfaceConnector builds the exchange pattern of a set of domain
// meshes extracted from the same global mesh.
func NewInterfaceConnector(meshes []*mesh.Mesh) (*InterfaceConnector, error) {
	if len(meshes) == 0 {
		return nil, fmt.Errorf("%w: no domains", ErrConnector)
	}
	n := len(meshes)
	ic := &InterfaceConnector{
		NumPartitions: n,
		DomainIDs:     make([]int, n),
		NumVertices:   make([]int, n),
		LocalToGlobal: make([][]int, n),
	}
	domains := make(map[int]bool, n)
	for p, m := range meshes {
		if m == nil {
			return nil, fmt.Errorf("%w: domain mesh %d is nil", ErrConnector, p)
		}
		if domains[m.DomainID()] {
			return nil, fmt.Errorf("%w: domain %d given twice", ErrConnector, m.DomainID())
		}
		domains[m.DomainID()] = true
		if m.NbTotalVertices() != meshes[0].NbTotalVertices() {
			return nil, fmt.Errorf("%w: domain %d has %d global vertices, domain %d has %d", ErrConnector,
				m.DomainID(), m.NbTotalVertices(), meshes[0].DomainID(), meshes[0].NbTotalVertices())
		}
		ic.DomainIDs[p] = m.DomainID()
		ic.NumVertices[p] = m.NumVertices()
		ic.LocalToGlobal[p] = m.LocalToGlobalMap()
	}

	if err := ic.checkSharedVertices(meshes); err != nil {
		return nil, err
	}
	ic.initializeBuffers()
	ic.buildIndices(meshes)
	if err := ic.Verify(); err != nil {
		return nil, err
	}
	return ic, nil
}

// checkSharedVertices rejects a global vertex used by two domains unless
// both list it on the interface.
func (ic *InterfaceConnector) checkSharedVertices(meshes []*mesh.Mesh) error {
	owner := make(map[int]int)
	for p, m := range meshes {
		for l, g := range ic.LocalToGlobal[p] {
			q, shared := owner[g]
			if !shared {
				owner[g] = p
				continue
			}
			lq, _ := meshes[q].GlobalToLocal(g)
			if !m.IsInterface(l) || !meshes[q].IsInterface(lq) {
				return fmt.Errorf("%w: global vertex %d is shared by domains %d and %d but is not an interface vertex",
					ErrConnector, g, ic.DomainIDs[q], ic.DomainIDs[p])
			}
		}
	}
	return nil
}

func (ic *InterfaceConnector) initializeBuffers() {
	ic.PickIndices = make([][]PickBuffer, ic.NumPartitions)
	ic.PlaceIndices = make([][]PlaceBuffer, ic.NumPartitions)
	for p := 0; p < ic.NumPartitions; p++ {
		ic.PickIndices[p] = make([]PickBuffer, ic.NumPartitions)
		ic.PlaceIndices[p] = make([]PlaceBuffer, ic.NumPartitions)
		for q := 0; q < ic.NumPartitions; q++ {
			ic.PickIndices[p][q] = PickBuffer{TargetPartition: q}
			ic.PlaceIndices[p][q] = PlaceBuffer{SourcePartition: q}
		}
	}
}

// buildIndices walks each target's interface vertices in local order and
// records where the same global vertex lives in every other domain.
func (ic *InterfaceConnector) buildIndices(meshes []*mesh.Mesh) {
	for target, m := range meshes {
		for l := m.NbLocalInterior(); l < m.NumVertices(); l++ {
			g := m.LocalToGlobal(l)
			for source, sm := range meshes {
				if source == target {
					continue
				}
				ls, ok := sm.GlobalToLocal(g)
				if !ok {
					continue
				}
				ic.PickIndices[source][target].Indices = append(ic.PickIndices[source][target].Indices, ls)
				ic.PlaceIndices[target][source].Indices = append(ic.PlaceIndices[target][source].Indices, l)
			}
		}
	}
}

// GetPickIndices returns pick indices for sending from source to target partition
func (ic *InterfaceConnector) GetPickIndices(sourcePartition, targetPartition int) []int {
	if !ic.valid(sourcePartition) || !ic.valid(targetPartition) {
		return nil
	}
	return ic.PickIndices[sourcePartition][targetPartition].Indices
}

// GetPlaceIndices returns place indices for target partition receiving from source
func (ic *InterfaceConnector) GetPlaceIndices(targetPartition, sourcePartition int) []int {
	if !ic.valid(sourcePartition) || !ic.valid(targetPartition) {
		return nil
	}
	return ic.PlaceIndices[targetPartition][sourcePartition].Indices
}

func (ic *InterfaceConnector) valid(p int) bool { return p >= 0 && p < ic.NumPartitions }

// Neighbors returns the partitions sharing at least one vertex with p
func (ic *InterfaceConnector) Neighbors(p int) []int {
	var nb []int
	for q := 0; q < ic.NumPartitions; q++ {
		if q != p && len(ic.GetPickIndices(q, p)) > 0 {
			nb = append(nb, q)
		}
	}
	return nb
}

// Verify checks index validity and symmetry
func (ic *InterfaceConnector) Verify() error {
	for p := 0; p < ic.NumPartitions; p++ {
		for q := 0; q < ic.NumPartitions; q++ {
			pick := ic.PickIndices[p][q].Indices
			place := ic.PlaceIndices[q][p].Indices
			if len(pick) != len(place) {
				return fmt.Errorf("%w: length mismatch: pick[%d][%d]=%d, place[%d][%d]=%d",
					ErrConnector, p, q, len(pick), q, p, len(place))
			}
			if len(pick) != len(ic.PickIndices[q][p].Indices) {
				return fmt.Errorf("%w: asymmetric exchange between partitions %d and %d", ErrConnector, p, q)
			}
			for k := range pick {
				if pick[k] < 0 || pick[k] >= ic.NumVertices[p] || place[k] < 0 || place[k] >= ic.NumVertices[q] {
					return fmt.Errorf("%w: index out of range between partitions %d and %d", ErrConnector, p, q)
				}
				if ic.LocalToGlobal[p][pick[k]] != ic.LocalToGlobal[q][place[k]] {
					return fmt.Errorf("%w: pick %d of partition %d is global %d, place is global %d", ErrConnector,
						k, p, ic.LocalToGlobal[p][pick[k]], ic.LocalToGlobal[q][place[k]])
				}
			}
		}
	}
	return nil
}

func (ic *InterfaceConnector) checkFields(fields [][]complex128) error {
	if len(fields) != ic.NumPartitions {
		return fmt.Errorf("%w: %d fields for %d partitions", ErrConnector, len(fields), ic.NumPartitions)
	}
	for p, f := range fields {
		if len(f) != ic.NumVertices[p] {
			return fmt.Errorf("%w: field of domain %d has %d entries, expected %d",
				ErrConnector, ic.DomainIDs[p], len(f), ic.NumVertices[p])
		}
	}
	return nil
}

// Exchange adds the contributions of every neighbor into the interface
// entries of each field. Values are gathered before any field is updated,
// so the result does not depend on partition order.
func (ic *InterfaceConnector) Exchange(fields [][]complex128) error {
	if err := ic.checkFields(fields); err != nil {
		return err
	}
	send := make([][][]complex128, ic.NumPartitions)
	for p := range send {
		send[p] = make([][]complex128, ic.NumPartitions)
		for q := range send[p] {
			pick := ic.PickIndices[p][q].Indices
			buf := make([]complex128, len(pick))
			for k, l := range pick {
				buf[k] = fields[p][l]
			}
			send[p][q] = buf
		}
	}
	for q := 0; q < ic.NumPartitions; q++ {
		for p := 0; p < ic.NumPartitions; p++ {
			for k, l := range ic.PlaceIndices[q][p].Indices {
				fields[q][l] += send[p][q][k]
			}
		}
	}
	return nil
}

// ToGlobal scatters the domain fields into a global vector of length
// nTotal. Vertices held by several domains receive the mean of their values;
// vertices held by none are zero.
func (ic *InterfaceConnector) ToGlobal(fields [][]complex128, nTotal int) ([]complex128, error) {
	if err := ic.checkFields(fields); err != nil {
		return nil, err
	}
	global := make([]complex128, nTotal)
	count := make([]int, nTotal)
	for p, f := range fields {
		for l, g := range ic.LocalToGlobal[p] {
			if g >= nTotal {
				return nil, fmt.Errorf("%w: global vertex %d outside [0, %d)", ErrConnector, g, nTotal)
			}
			global[g] += f[l]
			count[g]++
		}
	}
	for g, c := range count {
		if c > 1 {
			global[g] /= complex(float64(c), 0)
		}
	}
	return global, nil
}

// Mismatch returns the largest difference between two domains' values at a
// shared vertex.
func (ic *InterfaceConnector) Mismatch(fields [][]complex128) (float64, error) {
	if err := ic.checkFields(fields); err != nil {
		return 0, err
	}
	var worst float64
	for p := 0; p < ic.NumPartitions; p++ {
		for q := 0; q < ic.NumPartitions; q++ {
			place := ic.PlaceIndices[q][p].Indices
			for k, l := range ic.PickIndices[p][q].Indices {
				worst = max(worst, cmplx.Abs(fields[p][l]-fields[q][place[k]]))
			}
		}
	}
	return worst, nil
}
