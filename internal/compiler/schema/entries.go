package schema

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/metamodel"
)

// overflowRule is a network rule that lost its option slot to an earlier
// association of the same entity type.
type overflowRule struct {
	association string
	option      string
	rule        NetworkRule
}

// buildEntries appends one entry per entity type, in table order, each
// followed by the overflow entries of its colliding link options.
func (c *compiler) buildEntries(doc *Document) {
	overflowCount := 0
	emitted := make(map[string]bool)
	for _, et := range c.table.EntityTypes() {
		primary, overflow := c.buildEntry(et)
		doc.Schemas = append(doc.Schemas, primary)
		emitted[primary.ID] = true

		seen := make(map[string]int)
		for _, o := range overflow {
			seen[o.option]++
			id := overflowID(et.NodeID, o.option, seen[o.option])
			// skip names that belong to a node or an earlier entry
			for c.idTaken(id, emitted) {
				seen[o.option]++
				id = overflowID(et.NodeID, o.option, seen[o.option])
			}
			emitted[id] = true
			c.report(errors.NewLinkOptionCollision(et.NodeID, o.association, o.option, id))
			doc.Schemas = append(doc.Schemas, Entry{
				ID:     id,
				Select: primary.Select,
				Validate: Validation{
					Network: map[string]NetworkRule{o.option: o.rule},
				},
			})
			overflowCount++
		}
	}

	c.logger.Debug("built schema entries",
		zap.Int("schemas", len(doc.Schemas)),
		zap.Int("overflow", overflowCount),
	)
}

// buildEntry returns the primary entry of an entity type and the network
// rules that collided with an earlier rule on the same option.
func (c *compiler) buildEntry(et *metamodel.EntityType) (Entry, []overflowRule) {
	local := &LocalRule{
		AllOf:                 []Ref{DefRef(et.NodeID)},
		UnevaluatedProperties: false,
	}
	for _, id := range c.table.GroupsOf(et.NodeID) {
		n, ok := c.resolve(et.NodeID, "groups", id)
		if !ok {
			continue
		}
		if _, ok := n.(*metamodel.TypeGroup); !ok {
			c.wrongKind(et.NodeID, "groups", n, string(metamodel.KindTypeGroup))
			continue
		}
		local.AllOf = append(local.AllOf, DefRef(id))
	}

	network := make(map[string]NetworkRule)
	var overflow []overflowRule
	for _, assoc := range c.associationsOf(et.NodeID) {
		link, ok := c.linkOf(assoc)
		if !ok {
			continue
		}
		directives := c.targetDirectives(assoc)
		if len(directives) == 0 {
			c.report(errors.NewAssociationWithoutTargets(assoc.NodeID, et.NodeID))
			continue
		}
		rule := newNetworkRule(directives)
		if _, taken := network[link.Option]; taken {
			overflow = append(overflow, overflowRule{
				association: assoc.NodeID,
				option:      link.Option,
				rule:        rule,
			})
			continue
		}
		network[link.Option] = rule
	}

	entry := Entry{
		ID:     et.NodeID,
		Select: DefRef(SelectorKey(et.Directive)),
		Validate: Validation{
			Local: local,
		},
	}
	if len(network) > 0 {
		entry.Validate.Network = network
	}
	return entry, overflow
}

// targetDirectives resolves the targets of an association to the directives
// a referenced record may carry. Groups expand to their member types.
func (c *compiler) targetDirectives(assoc *metamodel.Association) []string {
	var directives []string
	add := func(d string) {
		if d != "" && !containsString(directives, d) {
			directives = append(directives, d)
		}
	}

	for _, id := range assoc.Targets {
		n, ok := c.resolve(assoc.NodeID, "targets", id)
		if !ok {
			continue
		}
		switch target := n.(type) {
		case *metamodel.EntityType:
			add(target.Directive)
		case *metamodel.TypeGroup:
			for _, et := range c.members(target) {
				add(et.Directive)
			}
		default:
			c.wrongKind(assoc.NodeID, "targets", n, "EntityType or TypeGroup")
		}
	}
	return directives
}

// overflowID names the n-th overflow entry of option on an entity type.
func overflowID(typeID, option string, n int) string {
	if n <= 1 {
		return fmt.Sprintf("%s_%s", typeID, option)
	}
	return fmt.Sprintf("%s_%d_%s", typeID, n, option)
}

func (c *compiler) idTaken(id string, emitted map[string]bool) bool {
	if emitted[id] {
		return true
	}
	_, ok := c.table.Get(id)
	return ok
}
