package schema

import (
	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/metamodel"
)

// assembleDefinitions fills doc.Defs with attribute fragments, then entity
// type selectors and structures, then type group selectors and structures.
// A later key replaces an earlier one.
func (c *compiler) assembleDefinitions(doc *Document) {
	origin := make(map[string]string)
	put := func(key, node string, frag Fragment) {
		if prev, exists := origin[key]; exists && prev != node {
			c.report(errors.NewDefinitionOverwritten(key, node))
		}
		origin[key] = node
		doc.Defs[key] = frag
	}

	keys, attrs := c.resolveAttributes()
	for _, key := range keys {
		put(key, key, attrs[key])
	}

	types := c.table.EntityTypes()
	for _, et := range types {
		put(SelectorKey(et.Directive), et.NodeID, typeSelector(et))
		put(et.NodeID, et.NodeID, c.resolveStructure(et.NodeID, &et.Shape))
	}

	groups := c.table.TypeGroups()
	for _, g := range groups {
		put(SelectorKey(g.NodeID), g.NodeID, c.groupSelector(g))
		put(g.NodeID, g.NodeID, c.resolveStructure(g.NodeID, &g.Shape))
	}

	c.logger.Debug("assembled definitions",
		zap.Int("types", len(types)),
		zap.Int("groups", len(groups)),
		zap.Int("defs", len(doc.Defs)),
	)
}

// typeSelector matches records whose type field equals the directive.
func typeSelector(et *metamodel.EntityType) Fragment {
	return Fragment{
		"properties": Fragment{
			"type": Fragment{"const": et.Directive},
		},
	}
}

// groupSelector matches records selected by any member type. A group
// without members keeps an empty anyOf and is reported.
func (c *compiler) groupSelector(g *metamodel.TypeGroup) Fragment {
	anyOf := []Ref{}
	for _, et := range c.members(g) {
		anyOf = append(anyOf, DefRef(SelectorKey(et.Directive)))
	}
	if len(anyOf) == 0 {
		c.report(errors.NewEmptyTypeGroup(g.NodeID))
	}
	return Fragment{"anyOf": anyOf}
}

// members resolves the entity types of a group, in membership order.
func (c *compiler) members(g *metamodel.TypeGroup) []*metamodel.EntityType {
	var out []*metamodel.EntityType
	for _, id := range c.table.MembersOf(g.NodeID) {
		n, ok := c.resolve(g.NodeID, "groupsBack", id)
		if !ok {
			continue
		}
		et, ok := n.(*metamodel.EntityType)
		if !ok {
			c.wrongKind(g.NodeID, "groupsBack", n, string(metamodel.KindEntityType))
			continue
		}
		out = append(out, et)
	}
	return out
}
