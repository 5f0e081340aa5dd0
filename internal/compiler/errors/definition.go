package errors

import (
	"fmt"
)

// Definition diagnostic codes (DEF300-399)
const (
	// ErrDefinitionOverwritten indicates a $defs key written twice
	ErrDefinitionOverwritten ErrorCode = "DEF300"
	// ErrEmptyTypeGroup indicates a type group without any resolvable member
	ErrEmptyTypeGroup ErrorCode = "DEF301"
)

// NewDefinitionOverwritten creates a DEF300 diagnostic
func NewDefinitionOverwritten(key, node string) *CompilerError {
	return newError(
		ErrDefinitionOverwritten,
		"definition_overwritten",
		CategoryDefinition,
		SeverityInfo,
		fmt.Sprintf("Definition '%s' is replaced by the one derived from '%s'", key, node),
		Origin{Node: node, Reference: key},
	)
}

// NewEmptyTypeGroup creates a DEF301 diagnostic. The group selector is an
// empty anyOf, which validators reject.
func NewEmptyTypeGroup(group string) *CompilerError {
	return newError(
		ErrEmptyTypeGroup,
		"empty_type_group",
		CategoryDefinition,
		SeverityError,
		fmt.Sprintf("Type group '%s' has no resolvable member type", group),
		Origin{Node: group, Field: "groupsBack"},
	).WithExpected("at least one EntityType member").
		WithSuggestion(fmt.Sprintf("List member types in the groupsBack of '%s' or remove the group", group))
}
