package schema

import (
	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/metamodel"
)

// linksProperty is the aggregate reference list added next to link options.
const linksProperty = "links"

// referenceList is the schema of a property holding referenced ids.
func referenceList() Fragment {
	return Fragment{
		"type":  "array",
		"items": Fragment{"type": "string"},
	}
}

// attributeFragment wraps an attribute's property schema into a reusable
// definition.
func attributeFragment(a *metamodel.Attribute) Fragment {
	return Fragment{
		"properties": Fragment{
			a.Name: a.PropertySchema(),
		},
	}
}

// resolveAttributes returns one definition per attribute, keyed by the
// attribute id, in table order.
func (c *compiler) resolveAttributes() ([]string, map[string]Fragment) {
	attrs := c.table.Attributes()
	keys := make([]string, 0, len(attrs))
	defs := make(map[string]Fragment, len(attrs))
	for _, a := range attrs {
		if _, seen := defs[a.NodeID]; !seen {
			keys = append(keys, a.NodeID)
		}
		defs[a.NodeID] = attributeFragment(a)
	}
	c.logger.Debug("resolved attributes", zap.Int("count", len(attrs)))
	return keys, defs
}

// resolveStructure computes the properties and required list declared by an
// entity type or type group. Both kinds go through this one routine.
func (c *compiler) resolveStructure(owner string, shape *metamodel.Shape) Fragment {
	properties := Fragment{}
	required := []string{}

	addAttribute := func(field, id string, mandatory bool) {
		n, ok := c.resolve(owner, field, id)
		if !ok {
			return
		}
		attr, ok := n.(*metamodel.Attribute)
		if !ok {
			c.wrongKind(owner, field, n, string(metamodel.KindAttribute))
			return
		}
		if attr.Name == "" {
			return
		}
		properties[attr.Name] = DefRef(attr.NodeID)
		if mandatory && !containsString(required, attr.Name) {
			required = append(required, attr.Name)
		}
	}

	for _, id := range shape.Mandatory {
		addAttribute("mandatory", id, true)
	}
	for _, id := range shape.Optional {
		addAttribute("optional", id, false)
	}

	linked := false
	for _, assoc := range c.associationsOf(owner) {
		link, ok := c.linkOf(assoc)
		if !ok {
			continue
		}
		properties[link.Option] = referenceList()
		linked = true
	}
	if linked {
		if _, exists := properties[linksProperty]; !exists {
			properties[linksProperty] = referenceList()
		}
	}

	return Fragment{
		"properties": properties,
		"required":   required,
	}
}

// associationsOf resolves the associations attached to owner, in adjacency
// order. Attached nodes of other kinds are skipped without a diagnostic.
func (c *compiler) associationsOf(owner string) []*metamodel.Association {
	var out []*metamodel.Association
	for _, id := range c.table.AssociationsOf(owner) {
		n, ok := c.resolve(owner, "parentNeedsBack", id)
		if !ok {
			continue
		}
		if assoc, ok := n.(*metamodel.Association); ok {
			out = append(out, assoc)
		}
	}
	return out
}

// linkOf returns the single link kind of an association. Associations with
// zero or several links, or an unresolvable link, are unusable.
func (c *compiler) linkOf(assoc *metamodel.Association) (*metamodel.LinkKind, bool) {
	if len(assoc.Link) != 1 {
		c.report(errors.NewMalformedAssociationLink(assoc.NodeID, assoc.Link))
		return nil, false
	}
	n, ok := c.resolve(assoc.NodeID, "link", assoc.Link[0])
	if !ok {
		return nil, false
	}
	link, ok := n.(*metamodel.LinkKind)
	if !ok {
		c.wrongKind(assoc.NodeID, "link", n, string(metamodel.KindLinkKind))
		return nil, false
	}
	if link.Option == "" {
		return nil, false
	}
	return link, true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
