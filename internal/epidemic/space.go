package epidemic

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/san-kum/epistrains/internal/dynamo"
)

// maxBits is the capacity of the Class bitmask.
const maxBits = 31

// Class is a susceptibility class: bit i is set when the class is immune to
// strain i.
type Class uint32

func ClassOf(strains ...int) Class {
	var c Class
	for _, i := range strains {
		c = c.With(i)
	}
	return c
}

func (c Class) Has(i int) bool      { return i >= 0 && i < 32 && c&(1<<uint(i)) != 0 }
func (c Class) With(i int) Class    { return c | 1<<uint(i) }
func (c Class) Without(i int) Class { return c &^ (1 << uint(i)) }
func (c Class) Len() int            { return bits.OnesCount32(uint32(c)) }

// Strains lists the strain indices in the class in increasing order.
func (c Class) Strains() []int {
	out := make([]int, 0, c.Len())
	for rest := uint32(c); rest != 0; rest &= rest - 1 {
		out = append(out, bits.TrailingZeros32(rest))
	}
	return out
}

func (c Class) String() string {
	parts := make([]string, 0, c.Len())
	for _, i := range c.Strains() {
		parts = append(parts, strconv.Itoa(i))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// InfectionState is someone infected with Strain who held Class before
// infection.
type InfectionState struct {
	Class  Class
	Strain int
}

func (s InfectionState) String() string {
	return fmt.Sprintf("(%s, %d)", s.Class, s.Strain)
}

type Layout int

const (
	// LayoutFull tracks every subset of strains as its own class.
	LayoutFull Layout = iota
	// LayoutCollapsed lumps all recovered individuals into one R class.
	LayoutCollapsed
)

func (l Layout) String() string {
	switch l {
	case LayoutFull:
		return "full"
	case LayoutCollapsed:
		return "collapsed"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full", "powerset":
		return LayoutFull, nil
	case "collapsed", "sir", "simple":
		return LayoutCollapsed, nil
	}
	return 0, dynamo.Configf("layout", "unknown layout %q", s)
}

// Space enumerates the compartments of a model with n strains and assigns
// each a stable slot in the state vector. A Space is immutable.
type Space struct {
	n      int
	layout Layout

	classes []Class
	states  []InfectionState

	classSlots []int
	stateSlots []int
	classIdx   map[Class]int
	stateIdx   map[InfectionState]int

	// infectTo[c][i] is the slot of state (classes[c], i), or -1 when
	// classes[c] is immune to i.
	infectTo [][]int
	// cleared[j] and source[j] are the class slots state j recovers into
	// and was infected from.
	cleared  []int
	source   []int
	byStrain [][]int

	labels []string
}

// NewSpace enumerates compartments for n strains. In the full layout the
// classes are generated by starting from the empty set and, for each
// strain i in turn, appending {i} ∪ c for every class c generated so far;
// infection states follow, grouped by class in that order.
func NewSpace(n int, layout Layout) (*Space, error) {
	if n < 1 {
		return nil, dynamo.Configf("strains", "at least one strain is required, got %d", n)
	}
	if n > maxBits {
		return nil, dynamo.Configf("strains", "at most %d strains are supported, got %d", maxBits, n)
	}

	sp := &Space{n: n, layout: layout}
	all := Class(1<<uint(n) - 1)

	switch layout {
	case LayoutFull:
		sp.classes = []Class{0}
		for i := 0; i < n; i++ {
			grown := make([]Class, 0, len(sp.classes))
			for _, c := range sp.classes {
				grown = append(grown, c.With(i))
			}
			sp.classes = append(sp.classes, grown...)
		}
		for _, c := range sp.classes {
			for i := 0; i < n; i++ {
				if !c.Has(i) {
					sp.states = append(sp.states, InfectionState{Class: c, Strain: i})
				}
			}
		}
		sp.classSlots = make([]int, len(sp.classes))
		for k := range sp.classes {
			sp.classSlots[k] = k
		}
		sp.stateSlots = make([]int, len(sp.states))
		for j := range sp.states {
			sp.stateSlots[j] = len(sp.classes) + j
		}
	case LayoutCollapsed:
		// S, I_1..I_n, R
		sp.classes = []Class{0, all}
		for i := 0; i < n; i++ {
			sp.states = append(sp.states, InfectionState{Class: 0, Strain: i})
		}
		sp.classSlots = []int{0, n + 1}
		sp.stateSlots = make([]int, n)
		for j := range sp.stateSlots {
			sp.stateSlots[j] = 1 + j
		}
	default:
		return nil, dynamo.Configf("layout", "unknown layout %d", int(layout))
	}

	sp.index(all)
	return sp, nil
}

func (sp *Space) index(all Class) {
	sp.classIdx = make(map[Class]int, len(sp.classes))
	for k, c := range sp.classes {
		sp.classIdx[c] = k
	}
	sp.stateIdx = make(map[InfectionState]int, len(sp.states))
	for j, s := range sp.states {
		sp.stateIdx[s] = j
	}

	sp.infectTo = make([][]int, len(sp.classes))
	for k := range sp.classes {
		row := make([]int, sp.n)
		for i := range row {
			row[i] = -1
		}
		sp.infectTo[k] = row
	}

	sp.byStrain = make([][]int, sp.n)
	sp.cleared = make([]int, len(sp.states))
	sp.source = make([]int, len(sp.states))
	for j, s := range sp.states {
		from := sp.classIdx[s.Class]
		sp.infectTo[from][s.Strain] = sp.stateSlots[j]
		sp.source[j] = sp.classSlots[from]
		sp.cleared[j] = sp.classSlots[sp.classIdx[sp.clearedClass(s, all)]]
		sp.byStrain[s.Strain] = append(sp.byStrain[s.Strain], sp.stateSlots[j])
	}

	sp.labels = make([]string, sp.Len())
	for k, c := range sp.classes {
		sp.labels[sp.classSlots[k]] = sp.classLabel(c, all)
	}
	for j, s := range sp.states {
		sp.labels[sp.stateSlots[j]] = sp.stateLabel(s)
	}
}

func (sp *Space) clearedClass(s InfectionState, all Class) Class {
	if sp.layout == LayoutCollapsed {
		return all
	}
	return s.Class.With(s.Strain)
}

func (sp *Space) classLabel(c, all Class) string {
	switch {
	case c == 0:
		return "S"
	case sp.layout == LayoutCollapsed && c == all:
		return "R"
	default:
		return "S_" + c.String()
	}
}

func (sp *Space) stateLabel(s InfectionState) string {
	if sp.layout == LayoutCollapsed {
		return fmt.Sprintf("I_%d", s.Strain+1)
	}
	if s.Class == 0 {
		return fmt.Sprintf("I w/ strain %d", s.Strain)
	}
	return fmt.Sprintf("I_%s w/ strain %d", s.Class, s.Strain)
}

func (sp *Space) Strains() int   { return sp.n }
func (sp *Space) Layout() Layout { return sp.layout }

// Len is the total number of compartments.
func (sp *Space) Len() int        { return len(sp.classes) + len(sp.states) }
func (sp *Space) NumClasses() int { return len(sp.classes) }
func (sp *Space) NumStates() int  { return len(sp.states) }

func (sp *Space) Classes() []Class {
	return append([]Class(nil), sp.classes...)
}

func (sp *Space) States() []InfectionState {
	return append([]InfectionState(nil), sp.states...)
}

// Immune is the class immune to every strain (R in the collapsed layout).
func (sp *Space) Immune() Class {
	return Class(1<<uint(sp.n) - 1)
}

// ClassIndex returns the slot of a susceptibility class.
func (sp *Space) ClassIndex(c Class) (int, error) {
	if k, ok := sp.classIdx[c]; ok {
		return sp.classSlots[k], nil
	}
	return -1, &dynamo.NotFoundError{Key: "class " + c.String()}
}

// StateIndex returns the slot of an infection state. A state whose strain
// already belongs to its class can never exist and is reported with
// Invariant set.
func (sp *Space) StateIndex(s InfectionState) (int, error) {
	j, err := sp.state(s)
	if err != nil {
		return -1, err
	}
	return sp.stateSlots[j], nil
}

func (sp *Space) state(s InfectionState) (int, error) {
	if s.Strain < 0 || s.Strain >= sp.n {
		return -1, &dynamo.NotFoundError{Key: "infection state " + s.String()}
	}
	if s.Class.Has(s.Strain) {
		return -1, &dynamo.NotFoundError{Key: "infection state " + s.String(), Invariant: true}
	}
	if j, ok := sp.stateIdx[s]; ok {
		return j, nil
	}
	return -1, &dynamo.NotFoundError{Key: "infection state " + s.String()}
}

// Cleared returns the class an individual in state s joins on recovery:
// s.Class with s.Strain added, or R in the collapsed layout.
func (sp *Space) Cleared(s InfectionState) (Class, error) {
	if _, err := sp.state(s); err != nil {
		return 0, err
	}
	return sp.clearedClass(s, sp.Immune()), nil
}

// ClearedSlot is the slot of the class returned by Cleared.
func (sp *Space) ClearedSlot(s InfectionState) (int, error) {
	j, err := sp.state(s)
	if err != nil {
		return -1, err
	}
	return sp.cleared[j], nil
}

// Source returns the slot of the class that state s was infected from.
func (sp *Space) Source(s InfectionState) (int, error) {
	j, err := sp.state(s)
	if err != nil {
		return -1, err
	}
	return sp.source[j], nil
}

// StrainSlots returns the slots of every infection state with strain i,
// across all classes they were infected from.
func (sp *Space) StrainSlots(i int) []int {
	if i < 0 || i >= sp.n {
		return nil
	}
	return append([]int(nil), sp.byStrain[i]...)
}

// Labels returns a human-readable name per slot, e.g. "S", "S_{0,1}",
// "I w/ strain 0" or "I_{0,1} w/ strain 2".
func (sp *Space) Labels() []string {
	return append([]string(nil), sp.labels...)
}

func (sp *Space) Label(slot int) string {
	if slot < 0 || slot >= len(sp.labels) {
		return ""
	}
	return sp.labels[slot]
}

// InfectedSlots returns the slots of every infection state.
func (sp *Space) InfectedSlots() []int {
	return append([]int(nil), sp.stateSlots...)
}

// ImmuneSlots returns the slots of every class immune to at least one
// strain.
func (sp *Space) ImmuneSlots() []int {
	out := make([]int, 0, len(sp.classes)-1)
	for k, c := range sp.classes {
		if c != 0 {
			out = append(out, sp.classSlots[k])
		}
	}
	return out
}
