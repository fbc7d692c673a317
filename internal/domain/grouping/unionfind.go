package grouping

// unionFind is a plain disjoint-set forest over candidate keys with path
// compression and union by size. Iterative throughout; component extraction
// must not recurse on large rosters.
type unionFind struct {
	parent map[string]string
	size   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		size:   make(map[string]int),
	}
}

// add registers a key as its own component if unseen.
func (u *unionFind) add(key string) {
	if _, ok := u.parent[key]; !ok {
		u.parent[key] = key
		u.size[key] = 1
	}
}

// find returns the component root for key, compressing the path walked.
func (u *unionFind) find(key string) string {
	root := key
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[key] != root {
		key, u.parent[key] = u.parent[key], root
	}
	return root
}

// union merges the components of a and b.
func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
