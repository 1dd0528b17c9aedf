package helper

import (
	"regexp"
	"sort"
	"strings"
)

// Entity is an immutable snapshot of one helper entity, taken at discovery
// time. Identity is the entity ID (domain.object_id).
type Entity struct {
	EntityID     string         `json:"entity_id"`
	Domain       string         `json:"domain"`
	ObjectID     string         `json:"object_id"`
	FriendlyName string         `json:"friendly_name,omitempty"`
	State        *string        `json:"state"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// entityIDPattern matches a well-formed entity ID: domain.object_id where
// both halves are lowercase alphanumerics and underscores.
const entityIDPattern = `^[a-z][a-z0-9_]*\.[a-z0-9_]+$`

var entityIDRegex = regexp.MustCompile(entityIDPattern)

// directDomains are entity domains whose members are always registry-managed
// helpers, deletable through the host's <domain>.remove service.
var directDomains = map[string]struct{}{
	"input_boolean":  {},
	"input_button":   {},
	"input_datetime": {},
	"input_number":   {},
	"input_select":   {},
	"input_text":     {},
	"counter":        {},
	"timer":          {},
	"schedule":       {},
	"variable":       {},
}

// helperPlatforms are the helper integrations that create entities in shared
// domains (sensor, binary_sensor, switch, ...). Together with directDomains
// these are the 27 recognised helper types.
var helperPlatforms = map[string]struct{}{
	"template":           {},
	"statistics":         {},
	"utility_meter":      {},
	"history_stats":      {},
	"integral":           {},
	"derivative":         {},
	"threshold":          {},
	"trend":              {},
	"group":              {},
	"combine":            {},
	"times_of_the_day":   {},
	"mold_indicator":     {},
	"manual":             {},
	"switch_as_x":        {},
	"generic_thermostat": {},
	"generic_hygrostat":  {},
	"min_max":            {},
}

// candidateDomains are entity domains that may host platform-created helpers.
// Membership alone proves nothing; the attribute shape decides.
var candidateDomains = map[string]struct{}{
	"sensor":        {},
	"binary_sensor": {},
	"switch":        {},
	"light":         {},
	"cover":         {},
	"fan":           {},
	"climate":       {},
	"lock":          {},
	"number":        {},
	"select":        {},
	"text":          {},
	"button":        {},
}

// integrationIndicators are attributes that identify an entity as belonging
// to a full integration rather than a user-created helper. Any one of these
// disqualifies a candidate.
var integrationIndicators = []string{
	"attribution",
	"assumed_state",
	"restored",
	"should_poll",
	"source_type",
	"state_class",
	"last_reset",
	"supported_features",
	"entity_registry_enabled_default",
	"entity_registry_visible_default",
	"unit_of_measurement",
	"options",
	"device_id",
}

// ValidEntityID reports whether s is a well-formed entity ID.
func ValidEntityID(s string) bool {
	return entityIDRegex.MatchString(s)
}

// SplitEntityID splits an entity ID into domain and object ID.
// ok is false when the ID is malformed.
func SplitEntityID(entityID string) (domain, objectID string, ok bool) {
	if !ValidEntityID(entityID) {
		return "", "", false
	}
	domain, objectID, _ = strings.Cut(entityID, ".")
	return domain, objectID, true
}

// IsDirectDomain reports whether domain holds registry-managed helpers
// (input_*, counter, timer, ...).
func IsDirectDomain(domain string) bool {
	_, ok := directDomains[domain]
	return ok
}

// IsCandidateDomain reports whether domain may host platform-created helpers
// (template sensors and friends).
func IsCandidateDomain(domain string) bool {
	_, ok := candidateDomains[domain]
	return ok
}

// IsHelperPlatform reports whether platform is one of the recognised helper
// integrations.
func IsHelperPlatform(platform string) bool {
	_, ok := helperPlatforms[platform]
	return ok
}

// DirectDomains returns the direct helper domains in sorted order.
func DirectDomains() []string {
	out := make([]string, 0, len(directDomains))
	for d := range directDomains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsTemplateType reports whether e is a template-type helper: one whose
// lifecycle is owned by static configuration rather than the mutable helper
// registry. These can never be removed via service calls.
func IsTemplateType(e Entity) bool {
	return e.Domain == "sensor" || e.Domain == "binary_sensor"
}

// LooksLikeHelper reports whether an entity in a candidate domain has the
// attribute shape of a user-created helper.
//
// The heuristic is conservative on purpose: a template helper carries only a
// handful of presentation attributes (friendly_name, device_class, icon,
// sometimes unique_id), while integration entities expose platform markers.
// When in doubt the answer is false - misclassifying an integration entity
// as a helper risks offering it for deletion.
func LooksLikeHelper(entityID string, attributes map[string]any) bool {
	if len(attributes) == 0 {
		return false
	}

	// Platform marker settles it outright.
	if p, ok := attributes["platform"].(string); ok {
		return IsHelperPlatform(p)
	}

	for _, indicator := range integrationIndicators {
		if _, present := attributes[indicator]; present {
			return false
		}
	}

	// Remaining attributes must all be presentation-level.
	basic := map[string]struct{}{
		"friendly_name":   {},
		"device_class":    {},
		"icon":            {},
		"unique_id":       {},
		"entity_category": {},
	}
	if len(attributes) > len(basic) {
		return false
	}
	for key := range attributes {
		if _, ok := basic[key]; !ok {
			return false
		}
	}
	return true
}
