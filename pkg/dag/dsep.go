package dag

// Ancestors marks every variable with a directed path into one of vs,
// including the members of vs themselves.
func (g *Graph) Ancestors(vs []int) []bool {
	anc := make([]bool, len(g.vars))
	stack := make([]int, 0, len(vs))
	for _, v := range vs {
		if !anc[v] {
			anc[v] = true
			stack = append(stack, v)
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.Parents(v) {
			if !anc[p] {
				anc[p] = true
				stack = append(stack, p)
			}
		}
	}
	return anc
}

// Reachable marks every variable that is d-connected to x given z in the
// directed part of g. Members of z are never marked.
//
// The traversal is the "Bayes ball" reachability search: a path may pass a
// non-collider only when it is outside z, and a collider only when it is an
// ancestor of z.
func (g *Graph) Reachable(x int, z []int) []bool {
	inZ := make([]bool, len(g.vars))
	for _, v := range z {
		inZ[v] = true
	}
	ancZ := g.Ancestors(z)

	type visit struct {
		v  int
		up bool // arrived from a child
	}
	seen := make(map[visit]bool)
	reach := make([]bool, len(g.vars))
	queue := []visit{{v: x, up: true}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if !inZ[cur.v] {
			reach[cur.v] = true
		}

		if cur.up {
			if inZ[cur.v] {
				continue
			}
			for _, p := range g.Parents(cur.v) {
				queue = append(queue, visit{v: p, up: true})
			}
			for _, c := range g.Children(cur.v) {
				queue = append(queue, visit{v: c, up: false})
			}
			continue
		}

		if !inZ[cur.v] {
			for _, c := range g.Children(cur.v) {
				queue = append(queue, visit{v: c, up: false})
			}
		}
		if ancZ[cur.v] {
			for _, p := range g.Parents(cur.v) {
				queue = append(queue, visit{v: p, up: true})
			}
		}
	}
	reach[x] = false
	return reach
}

// DSeparated reports whether x and y are d-separated given z. A variable is
// never d-separated from itself.
func (g *Graph) DSeparated(x, y int, z []int) bool {
	if x == y {
		return false
	}
	return !g.Reachable(x, z)[y]
}
