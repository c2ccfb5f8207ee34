// Package types defines the primitive data shapes shared by the conflict
// engine, scheduler, kernel, and storage layers: predicates, resource
// references, and the Subject-Predicate-Object triples that carry an agent's
// declared intent.
package types

import (
	"fmt"
	"strings"
)

// Predicate is the verb in a Subject-Predicate-Object intent triple: what an
// agent intends to do to a resource.
type Predicate int

const (
	Provides Predicate = iota
	Consumes
	Mutates
	Deletes
	DependsOn
	Renames
)

// predicateNames is ordered to match the Predicate iota values and the
// compatibility matrix column/row order in package conflict.
var predicateNames = [...]string{"PROVIDES", "CONSUMES", "MUTATES", "DELETES", "DEPENDS_ON", "RENAMES"}

// String renders the wire form of a predicate (e.g. "DEPENDS_ON").
func (p Predicate) String() string {
	if p < 0 || int(p) >= len(predicateNames) {
		return "UNKNOWN"
	}
	return predicateNames[p]
}

// Index returns the predicate's position in the 6x6 compatibility matrix.
func (p Predicate) Index() int {
	return int(p)
}

// ParsePredicate parses the wire form of a predicate, defaulting to Consumes
// for unrecognized input — callers that must reject unknown predicates
// should validate against ValidPredicateNames first.
func ParsePredicate(s string) Predicate {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PROVIDES":
		return Provides
	case "CONSUMES":
		return Consumes
	case "MUTATES":
		return Mutates
	case "DELETES":
		return Deletes
	case "DEPENDS_ON":
		return DependsOn
	case "RENAMES":
		return Renames
	default:
		return Consumes
	}
}

// ValidPredicateNames lists the accepted wire values for a Predicate.
func ValidPredicateNames() []string {
	return append([]string(nil), predicateNames[:]...)
}

// Confidence reflects how certain an intent inference is. It never affects
// conflict or scheduling decisions — it is carried end to end for
// downstream consumers that want to distinguish human-confirmed intents
// from auto-inferred ones.
type Confidence int

const (
	High Confidence = iota
	Medium
	Low
)

var confidenceNames = [...]string{"HIGH", "MEDIUM", "LOW"}

func (c Confidence) String() string {
	if c < 0 || int(c) >= len(confidenceNames) {
		return "UNKNOWN"
	}
	return confidenceNames[c]
}

// ParseConfidence parses the wire form of a confidence level, defaulting to
// High for unrecognized or empty input.
func ParseConfidence(s string) Confidence {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MEDIUM":
		return Medium
	case "LOW":
		return Low
	default:
		return High
	}
}

// ResourceType identifies the kind of thing being coordinated over.
type ResourceType int

const (
	File ResourceType = iota
	Symbol
	ApiEndpoint
	DatabaseTable
	ConfigKey
)

var resourceTypeNames = [...]string{"FILE", "SYMBOL", "API_ENDPOINT", "DATABASE_TABLE", "CONFIG_KEY"}

func (t ResourceType) String() string {
	if t < 0 || int(t) >= len(resourceTypeNames) {
		return "UNKNOWN"
	}
	return resourceTypeNames[t]
}

// ParseResourceType parses the wire form of a resource type, defaulting to
// File for unrecognized input — callers that must reject unknown types
// should validate against ValidResourceTypeNames first.
func ParseResourceType(s string) ResourceType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SYMBOL":
		return Symbol
	case "API_ENDPOINT":
		return ApiEndpoint
	case "DATABASE_TABLE":
		return DatabaseTable
	case "CONFIG_KEY":
		return ConfigKey
	default:
		return File
	}
}

// ValidResourceTypeNames lists the accepted wire values for a ResourceType.
func ValidResourceTypeNames() []string {
	return append([]string(nil), resourceTypeNames[:]...)
}

// ResourceRef identifies a single coordinated resource: its type plus a
// normalized path ("/src/auth.ts", "User.authenticate", "users" table, ...).
type ResourceRef struct {
	ResourceType ResourceType
	Path         string
}

// Key returns the canonical string form used for hash-based lookups,
// "{TYPE}:{path}".
func (r ResourceRef) Key() string {
	return fmt.Sprintf("%s:%s", r.ResourceType, r.Path)
}

// SPOTriple is a Subject-Predicate-Object triple: one agent's declared
// intent toward one resource, within one session.
type SPOTriple struct {
	ID         string
	Subject    string
	Predicate  Predicate
	Object     ResourceRef
	Timestamp  uint64
	Confidence Confidence
	SessionID  string
}
