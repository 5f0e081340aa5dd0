package errors

import (
	"fmt"
)

// Association diagnostic codes (ASC200-299)
const (
	// ErrMalformedAssociationLink indicates an association whose link list
	// does not name exactly one resolvable link kind
	ErrMalformedAssociationLink ErrorCode = "ASC200"
	// ErrAssociationWithoutTargets indicates an association without any
	// resolvable target directive
	ErrAssociationWithoutTargets ErrorCode = "ASC201"
	// ErrLinkOptionCollision indicates two associations of one type that
	// share a link option
	ErrLinkOptionCollision ErrorCode = "ASC202"
)

// NewMalformedAssociationLink creates an ASC200 diagnostic
func NewMalformedAssociationLink(association string, links []string) *CompilerError {
	return newError(
		ErrMalformedAssociationLink,
		"malformed_association_link",
		CategoryAssociation,
		SeverityError,
		fmt.Sprintf("Association '%s' must name exactly one link kind, found %d", association, len(links)),
		Origin{Node: association, Field: "link"},
	).WithExpected("exactly one LinkKind id").
		WithActual(fmt.Sprintf("%v", links)).
		WithSuggestion("Split the association into one association per link kind")
}

// NewAssociationWithoutTargets creates an ASC201 diagnostic
func NewAssociationWithoutTargets(association, parent string) *CompilerError {
	return newError(
		ErrAssociationWithoutTargets,
		"association_without_targets",
		CategoryAssociation,
		SeverityError,
		fmt.Sprintf("Association '%s' of '%s' has no resolvable target type", association, parent),
		Origin{Node: association, Field: "targets"},
	).WithSuggestion("List at least one EntityType or a TypeGroup with members in targets")
}

// NewLinkOptionCollision creates an ASC202 diagnostic
func NewLinkOptionCollision(entity, association, option, extraID string) *CompilerError {
	return newError(
		ErrLinkOptionCollision,
		"link_option_collision",
		CategoryAssociation,
		SeverityInfo,
		fmt.Sprintf("Association '%s' reuses link option '%s'; its rule is emitted as schema '%s'", association, option, extraID),
		Origin{Node: entity, Field: "parentNeedsBack", Reference: association},
	)
}
