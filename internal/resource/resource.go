// Package resource defines the deletable resource kinds of a
// SafetyCulture account and the parsing of their listing responses.
package resource

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies one category of deletable backend entity.
type Kind string

const (
	Actions     Kind = "actions"
	Issues      Kind = "issues"
	Inspections Kind = "inspections"
	Assets      Kind = "assets"
	Credentials Kind = "credentials"
	Companies   Kind = "companies"
	OshaCases   Kind = "osha_cases"
	Templates   Kind = "templates"
	Sites       Kind = "sites"
)

// Order is the fixed processing order. It reflects backend deletion
// dependencies: task-level records go first, and the site/folder
// hierarchy that anchors everything else goes last.
var Order = []Kind{
	Actions,
	Issues,
	Inspections,
	Assets,
	Credentials,
	Companies,
	OshaCases,
	Templates,
	Sites,
}

// Valid reports whether k names a known resource kind.
func Valid(k Kind) bool {
	for _, known := range Order {
		if k == known {
			return true
		}
	}
	return false
}

// ParseSkipList parses a comma-separated skip list into a kind set.
// Unknown names are an error so a typo can't silently widen the blast
// radius of a run.
func ParseSkipList(s string) (map[Kind]bool, error) {
	skip := make(map[Kind]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		k := Kind(name)
		if !Valid(k) {
			return nil, fmt.Errorf("unknown resource kind %q (valid: %s)", name, kindNames())
		}
		skip[k] = true
	}
	return skip, nil
}

func kindNames() string {
	names := make([]string, len(Order))
	for i, k := range Order {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}

// Item is one deletable unit extracted from a listing page.
type Item struct {
	// ID is the primary identifier. For composite-key kinds it is the
	// leading key field and is used for dedup and logging.
	ID string

	// Query carries the composite-key fields for kinds that delete by
	// query parameters instead of a path id.
	Query url.Values

	// Err is a locally detected precondition failure (e.g. missing
	// composite-key fields). Such items are recorded failed without a
	// delete call ever being issued.
	Err string
}

// Key returns the dedup key for the item. Composite-key kinds fold the
// full query into the key so two listings of the same document under
// different subjects stay distinct.
func (it Item) Key() string {
	if len(it.Query) == 0 {
		return it.ID
	}
	return it.ID + "|" + it.Query.Encode()
}
