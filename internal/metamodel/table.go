package metamodel

// Table is an ordered, read-only node graph.
//
// Iteration order is the order in which nodes were handed to New. The table
// never changes after construction, so it can be shared between concurrent
// compilations.
type Table struct {
	order []Node
	byID  map[string]Node

	associations map[string][]string
	groups       map[string][]string
	members      map[string][]string
}

// New builds a table from nodes. A node whose id was already seen replaces
// the earlier node but keeps its position.
func New(nodes []Node) *Table {
	t := &Table{
		order: make([]Node, 0, len(nodes)),
		byID:  make(map[string]Node, len(nodes)),
	}

	position := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if i, ok := position[n.ID()]; ok {
			t.order[i] = n
			t.byID[n.ID()] = n
			continue
		}
		position[n.ID()] = len(t.order)
		t.order = append(t.order, n)
		t.byID[n.ID()] = n
	}

	t.buildIndexes()
	return t
}

// Len returns the number of nodes
func (t *Table) Len() int {
	return len(t.order)
}

// Nodes returns all nodes in table order
func (t *Table) Nodes() []Node {
	out := make([]Node, len(t.order))
	copy(out, t.order)
	return out
}

// Get looks up a node by id
func (t *Table) Get(id string) (Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// OfKind returns the nodes of the given kind in table order
func (t *Table) OfKind(kind Kind) []Node {
	var out []Node
	for _, n := range t.order {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

// Attributes returns all attribute nodes in table order
func (t *Table) Attributes() []*Attribute {
	return ofType[*Attribute](t.order)
}

// EntityTypes returns all entity type nodes in table order
func (t *Table) EntityTypes() []*EntityType {
	return ofType[*EntityType](t.order)
}

// TypeGroups returns all type group nodes in table order
func (t *Table) TypeGroups() []*TypeGroup {
	return ofType[*TypeGroup](t.order)
}

// LinkKinds returns all link kind nodes in table order
func (t *Table) LinkKinds() []*LinkKind {
	return ofType[*LinkKind](t.order)
}

// Associations returns all association nodes in table order
func (t *Table) Associations() []*Association {
	return ofType[*Association](t.order)
}

func ofType[T Node](nodes []Node) []T {
	var out []T
	for _, n := range nodes {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// AssociationsOf returns the ids attached to parent: its declared
// parentNeedsBack entries first, then associations that name parent in their
// own parent field. Ids are not resolved here.
func (t *Table) AssociationsOf(parentID string) []string {
	return t.associations[parentID]
}

// GroupsOf returns the group ids an entity type belongs to: its declared
// groups, then groups that list the type as a member.
func (t *Table) GroupsOf(typeID string) []string {
	return t.groups[typeID]
}

// MembersOf returns the member ids of a type group: its declared groupsBack,
// then entity types that list the group in their groups.
func (t *Table) MembersOf(groupID string) []string {
	return t.members[groupID]
}

func (t *Table) buildIndexes() {
	t.associations = make(map[string][]string)
	t.groups = make(map[string][]string)
	t.members = make(map[string][]string)

	for _, n := range t.order {
		switch v := n.(type) {
		case *EntityType:
			t.associations[v.NodeID] = appendUnique(t.associations[v.NodeID], v.ParentNeedsBack...)
			t.groups[v.NodeID] = appendUnique(t.groups[v.NodeID], v.Groups...)
		case *TypeGroup:
			t.associations[v.NodeID] = appendUnique(t.associations[v.NodeID], v.ParentNeedsBack...)
			t.members[v.NodeID] = appendUnique(t.members[v.NodeID], v.GroupsBack...)
		}
	}

	// Derived edges go after the declared ones so declared order wins.
	for _, n := range t.order {
		switch v := n.(type) {
		case *Association:
			if v.Parent != "" {
				t.associations[v.Parent] = appendUnique(t.associations[v.Parent], v.NodeID)
			}
		case *EntityType:
			for _, g := range v.Groups {
				t.members[g] = appendUnique(t.members[g], v.NodeID)
			}
		case *TypeGroup:
			for _, m := range v.GroupsBack {
				t.groups[m] = appendUnique(t.groups[m], v.NodeID)
			}
		}
	}
}

func appendUnique(list []string, ids ...string) []string {
	for _, id := range ids {
		if id == "" || contains(list, id) {
			continue
		}
		list = append(list, id)
	}
	return list
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
