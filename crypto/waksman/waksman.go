// Package waksman implements the recursive Waksman permutation network
// described in spec.md section 4.3: given a permutation of n wires, it
// programs a set of 2-input conditional-swap switches so that routing
// every input through its programmed switches reproduces the permutation.
//
// crypto/selection builds both the "extended" (m>=u) and "truncated"
// (m<u) selection shapes on top of a single general bijection-sized
// network here, rather than special-casing the two sub-network-size
// formulas from the Waksman literature: padding a u->m extended map with
// m-u dummy source wires, or padding a u->v truncated map with u-v
// discarded destination slots, both reduce to programming one full
// bijection on max(u,m) (resp. u) elements and letting the caller ignore
// the padding/discarded outputs. This keeps one code path for both shapes
// at the cost of a constant number of unused switches - see DESIGN.md.
package waksman

import "errors"

// ErrNotAPermutation is returned when Program's input is not a bijection
// of {0,...,n-1}.
var ErrNotAPermutation = errors.New("waksman: not a permutation")

// Network is a programmed Waksman network for some fixed permutation of n
// wires. The zero value is not valid; build one with Program.
type Network struct {
	n int

	// leaf case, valid when n == 2.
	leafSwitch bool

	// recursive case, valid when n > 2.
	topSize, botSize int
	inSwitch         []bool // one per input pair (2k, 2k+1), len n/2
	outSwitch        []bool // one per output pair (2k, 2k+1), len n/2
	top, bottom      *Network
}

// Program builds a Waksman network realizing perm: perm[o] is the input
// index routed to output o. perm must be a bijection of {0,...,len(perm)-1}.
func Program(perm []int) (*Network, error) {
	if err := validatePermutation(perm); err != nil {
		return nil, err
	}
	return program(perm)
}

func validatePermutation(perm []int) error {
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return ErrNotAPermutation
		}
		seen[p] = true
	}
	return nil
}

func program(perm []int) (*Network, error) {
	n := len(perm)
	if n <= 1 {
		return &Network{n: n}, nil
	}
	if n == 2 {
		return &Network{n: 2, leafSwitch: perm[0] == 1}, nil
	}

	permInv := make([]int, n)
	for o, i := range perm {
		permInv[i] = o
	}

	numPairs := n / 2
	topSize := (n + 1) / 2
	botSize := n / 2

	// Two-color the graph of value-nodes indexed by output position:
	// edge (2k,2k+1) forces differing colors (output-pair switch), edge
	// (permInv[2k], permInv[2k+1]) forces differing colors (input-pair
	// switch, expressed in output-position space via permInv). This is
	// the loop-following routing algorithm from spec.md section 4.3.
	const unset = -1
	color := make([]int, n)
	for i := range color {
		color[i] = unset
	}
	adj := make([][]int, n)
	addEdge := func(a, b int) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for k := 0; k < numPairs; k++ {
		addEdge(2*k, 2*k+1)
		addEdge(permInv[2*k], permInv[2*k+1])
	}
	// For odd n, the unpaired output n-1 and the output fed by the unpaired
	// input n-1 both have to be colored 0 (top). They are the two ends of
	// one even-length path, so coloring outward from n-1 first gives both 0.
	starts := make([]int, 0, n+1)
	if n%2 == 1 {
		starts = append(starts, n-1)
	}
	for v := 0; v < n; v++ {
		starts = append(starts, v)
	}
	for _, start := range starts {
		if color[start] != unset {
			continue
		}
		color[start] = 0
		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range adj[cur] {
				if color[nb] == unset {
					color[nb] = 1 - color[cur]
					queue = append(queue, nb)
				}
			}
		}
	}

	outColor := color // color[v] for v = output position v, directly.
	inColor := make([]int, n)
	for i := 0; i < n; i++ {
		inColor[i] = color[permInv[i]]
	}

	inPosTop := make([]int, n)
	inPosBot := make([]int, n)
	outPosTop := make([]int, n)
	outPosBot := make([]int, n)
	inSwitch := make([]bool, numPairs)
	outSwitch := make([]bool, numPairs)

	for k := 0; k < numPairs; k++ {
		if inColor[2*k] == 0 {
			inPosTop[2*k] = k
			inPosBot[2*k+1] = k
			inSwitch[k] = false
		} else {
			inPosBot[2*k] = k
			inPosTop[2*k+1] = k
			inSwitch[k] = true
		}
		if outColor[2*k] == 0 {
			outPosTop[2*k] = k
			outPosBot[2*k+1] = k
			outSwitch[k] = false
		} else {
			outPosBot[2*k] = k
			outPosTop[2*k+1] = k
			outSwitch[k] = true
		}
	}
	if n%2 == 1 {
		inPosTop[n-1] = numPairs
		outPosTop[n-1] = numPairs
	}

	topPerm := make([]int, topSize)
	botPerm := make([]int, botSize)
	for o := 0; o < n; o++ {
		i := perm[o]
		if outColor[o] == 0 {
			topPerm[outPosTop[o]] = inPosTop[i]
		} else {
			botPerm[outPosBot[o]] = inPosBot[i]
		}
	}

	top, err := program(topPerm)
	if err != nil {
		return nil, err
	}
	bottom, err := program(botPerm)
	if err != nil {
		return nil, err
	}

	return &Network{
		n:         n,
		topSize:   topSize,
		botSize:   botSize,
		inSwitch:  inSwitch,
		outSwitch: outSwitch,
		top:       top,
		bottom:    bottom,
	}, nil
}

// Size returns the network's wire count n.
func (net *Network) Size() int { return net.n }

// NumSwitches returns the total number of 2-input conditional-swap
// switches across the whole recursive structure.
func (net *Network) NumSwitches() int {
	switch {
	case net.n <= 1:
		return 0
	case net.n == 2:
		return 1
	default:
		return 2*len(net.inSwitch) + net.top.NumSwitches() + net.bottom.NumSwitches()
	}
}

// Switches returns the programmed control bits in the traversal order
// BuildCircuit expects its switchWires argument in.
func (net *Network) Switches() []bool {
	switch {
	case net.n <= 1:
		return nil
	case net.n == 2:
		return []bool{net.leafSwitch}
	default:
		out := make([]bool, 0, net.NumSwitches())
		out = append(out, net.inSwitch...)
		out = append(out, net.outSwitch...)
		out = append(out, net.top.Switches()...)
		out = append(out, net.bottom.Switches()...)
		return out
	}
}

// ApplyInt evaluates the network in plaintext: out[o] == inputs[perm[o]]
// for the permutation Program built it from.
func (net *Network) ApplyInt(inputs []int) []int {
	switch {
	case net.n <= 1:
		return append([]int(nil), inputs...)
	case net.n == 2:
		if net.leafSwitch {
			return []int{inputs[1], inputs[0]}
		}
		return []int{inputs[0], inputs[1]}
	default:
		numPairs := len(net.inSwitch)
		topIn := make([]int, net.topSize)
		botIn := make([]int, net.botSize)
		for k := 0; k < numPairs; k++ {
			a, b := inputs[2*k], inputs[2*k+1]
			if net.inSwitch[k] {
				a, b = b, a
			}
			topIn[k], botIn[k] = a, b
		}
		if net.n%2 == 1 {
			topIn[net.topSize-1] = inputs[net.n-1]
		}
		topOut := net.top.ApplyInt(topIn)
		botOut := net.bottom.ApplyInt(botIn)
		out := make([]int, net.n)
		for k := 0; k < numPairs; k++ {
			a, b := topOut[k], botOut[k]
			if net.outSwitch[k] {
				a, b = b, a
			}
			out[2*k], out[2*k+1] = a, b
		}
		if net.n%2 == 1 {
			out[net.n-1] = topOut[net.topSize-1]
		}
		return out
	}
}

// Swapper lets BuildCircuit stay agnostic of the underlying wire
// representation: crypto/mpcengine implements it over garbled-circuit
// wire ids, while tests implement it directly over plaintext ints. This
// is the "trait accepting any compatible engine" DESIGN NOTES in spec.md
// section 9 calls for.
type Swapper interface {
	// CondSwap returns (out0, out1) routed from (a, b) according to the
	// boolean carried by ctrl: out0,out1 = ctrl ? (b,a) : (a,b).
	CondSwap(ctrl, a, b int) (int, int)
}

// BuildCircuit threads inputs (wire ids in sw's domain) through the
// network, consuming one control wire per switch from switchWires in
// Switches' traversal order, and returns the output wire ids.
func (net *Network) BuildCircuit(sw Swapper, switchWires []int, inputs []int) []int {
	out, _ := net.buildCircuit(sw, switchWires, inputs)
	return out
}

func (net *Network) buildCircuit(sw Swapper, switchWires []int, inputs []int) ([]int, []int) {
	switch {
	case net.n <= 1:
		return append([]int(nil), inputs...), switchWires
	case net.n == 2:
		a, b := sw.CondSwap(switchWires[0], inputs[0], inputs[1])
		return []int{a, b}, switchWires[1:]
	default:
		numPairs := len(net.inSwitch)
		topIn := make([]int, net.topSize)
		botIn := make([]int, net.botSize)
		rest := switchWires
		for k := 0; k < numPairs; k++ {
			a, b := sw.CondSwap(rest[0], inputs[2*k], inputs[2*k+1])
			topIn[k], botIn[k] = a, b
			rest = rest[1:]
		}
		outSwitchWires := rest[:numPairs]
		rest = rest[numPairs:]
		if net.n%2 == 1 {
			topIn[net.topSize-1] = inputs[net.n-1]
		}
		topOut, rest := net.top.buildCircuit(sw, rest, topIn)
		botOut, rest := net.bottom.buildCircuit(sw, rest, botIn)
		out := make([]int, net.n)
		for k := 0; k < numPairs; k++ {
			a, b := sw.CondSwap(outSwitchWires[k], topOut[k], botOut[k])
			out[2*k], out[2*k+1] = a, b
		}
		if net.n%2 == 1 {
			out[net.n-1] = topOut[net.topSize-1]
		}
		return out, rest
	}
}
