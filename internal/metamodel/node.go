// Package metamodel holds the node graph a schema is compiled from.
//
// A metamodel is a flat set of typed nodes that reference each other by
// identifier. Each node kind has its own Go type; the Table keeps them in
// encounter order and answers lookups, kind selections and the adjacency
// questions (associations of a parent, groups of a type, members of a group)
// that the compiler needs.
package metamodel

import (
	"regexp"
	"strings"
)

// Kind is the discriminator of a node
type Kind string

const (
	KindAttribute   Kind = "Attribute"
	KindEntityType  Kind = "EntityType"
	KindTypeGroup   Kind = "TypeGroup"
	KindLinkKind    Kind = "LinkKind"
	KindAssociation Kind = "Association"
	// KindUnknown marks records whose discriminator is not recognized. They are
	// kept in the table but never contribute to a schema.
	KindUnknown Kind = "Unknown"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]{5,}$`)

// ValidIdentifier reports whether id matches the identifier pattern used by
// metamodel documents.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

// ParseKind maps a raw discriminator to a Kind. Matching ignores case,
// underscores, hyphens and spaces, so "entity_type" and "EntityType" are equal.
func ParseKind(raw string) Kind {
	norm := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(raw)))

	switch norm {
	case "attribute", "option", "extraoption", "snoption":
		return KindAttribute
	case "entitytype", "type", "needtype", "sntype":
		return KindEntityType
	case "typegroup", "group", "sntypegroup", "sngroup":
		return KindTypeGroup
	case "linkkind", "link", "extralink", "snlink":
		return KindLinkKind
	case "association", "assoc", "snassociation", "snassoc":
		return KindAssociation
	default:
		return KindUnknown
	}
}

// Node is one record of the metamodel graph
type Node interface {
	ID() string
	Kind() Kind
}

// Attribute declares a property that entity types can require or allow
type Attribute struct {
	NodeID string
	Name   string
	// Fragment is the literal schema of the property. Nil means the default
	// string schema.
	Fragment map[string]any
}

func (a *Attribute) ID() string { return a.NodeID }
func (a *Attribute) Kind() Kind { return KindAttribute }

// DefaultFragment is the property schema used when an attribute does not
// declare one.
func DefaultFragment() map[string]any {
	return map[string]any{"type": "string"}
}

// PropertySchema returns a copy of the attribute's fragment, or the default
// string schema. Changing the result leaves the node untouched.
func (a *Attribute) PropertySchema() map[string]any {
	if a.Fragment == nil {
		return DefaultFragment()
	}
	return CloneFragment(a.Fragment)
}

// CloneFragment deep-copies a decoded JSON or YAML object.
func CloneFragment(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneFragment(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Shape is the structural part shared by entity types and type groups
type Shape struct {
	Mandatory []string
	Optional  []string
	// ParentNeedsBack lists nodes (normally associations) that name the owner
	// as their parent.
	ParentNeedsBack []string
}

// EntityType is a concrete record type of the data set
type EntityType struct {
	NodeID    string
	Directive string
	Groups    []string
	Shape
}

func (e *EntityType) ID() string { return e.NodeID }
func (e *EntityType) Kind() Kind { return KindEntityType }

// TypeGroup is an abstract union of entity types
type TypeGroup struct {
	NodeID     string
	GroupsBack []string
	Shape
}

func (g *TypeGroup) ID() string { return g.NodeID }
func (g *TypeGroup) Kind() Kind { return KindTypeGroup }

// LinkKind is a named relation stored under Option on instance data
type LinkKind struct {
	NodeID string
	Option string
}

func (l *LinkKind) ID() string { return l.NodeID }
func (l *LinkKind) Kind() Kind { return KindLinkKind }

// Association attaches a link kind and its legal targets to a parent type or
// group.
type Association struct {
	NodeID  string
	Parent  string
	Link    []string
	Targets []string
}

func (a *Association) ID() string { return a.NodeID }
func (a *Association) Kind() Kind { return KindAssociation }

// Unknown is a record with an unrecognized discriminator
type Unknown struct {
	NodeID string
	Raw    string
}

func (u *Unknown) ID() string { return u.NodeID }
func (u *Unknown) Kind() Kind { return KindUnknown }

// ShapeOf returns the structural fields of n when n is an entity type or a
// type group.
func ShapeOf(n Node) (*Shape, bool) {
	switch v := n.(type) {
	case *EntityType:
		return &v.Shape, true
	case *TypeGroup:
		return &v.Shape, true
	default:
		return nil, false
	}
}
