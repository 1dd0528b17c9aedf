package helper

import (
	"context"
	"fmt"
	"sort"
)

// EntityState is one row of the live registry as exposed by the state source.
type EntityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// StateSource provides read-only access to the live entity registry.
// The production implementation is the Home Assistant WebSocket client;
// tests substitute a fixture.
type StateSource interface {
	// States returns every entity's current state and attributes.
	States(ctx context.Context) ([]EntityState, error)
}

// Logger defines the logging interface used by Discovery.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Discovery enumerates helper entities from a live state source.
//
// A discovery pass is a point-in-time snapshot: the returned entities are
// independent copies and never mutate afterwards.
type Discovery struct {
	source StateSource
	logger Logger
}

// NewDiscovery creates a Discovery reading from the given source.
func NewDiscovery(source StateSource) *Discovery {
	return &Discovery{
		source: source,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the discovery pass.
func (d *Discovery) SetLogger(logger Logger) {
	d.logger = logger
}

// Discover returns a snapshot of every helper entity currently registered,
// sorted by entity ID for deterministic downstream output.
//
// Entities that fail the per-entity checks (malformed ID, unparseable
// attributes) are skipped with a warning; only a total source failure
// returns an error.
//
// Returns:
//   - []Entity: Helper snapshots sorted by entity ID
//   - error: ErrSourceUnavailable (wrapped) if the source cannot be queried
func (d *Discovery) Discover(ctx context.Context) ([]Entity, error) {
	states, err := d.source.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	helpers := make([]Entity, 0, len(states)/8)
	for _, st := range states {
		entity, ok := d.asHelper(st)
		if !ok {
			continue
		}
		helpers = append(helpers, entity)
	}

	sort.Slice(helpers, func(i, j int) bool {
		return helpers[i].EntityID < helpers[j].EntityID
	})

	d.logger.Debug("helper discovery complete",
		"states", len(states),
		"helpers", len(helpers),
	)
	return helpers, nil
}

// Lookup returns the helper snapshot for one entity ID, or ErrNotFound when
// the entity is absent or is not a helper.
func (d *Discovery) Lookup(ctx context.Context, entityID string) (*Entity, error) {
	if !ValidEntityID(entityID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityID, entityID)
	}

	states, err := d.source.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	for _, st := range states {
		if st.EntityID != entityID {
			continue
		}
		entity, ok := d.asHelper(st)
		if !ok {
			return nil, ErrNotFound
		}
		return &entity, nil
	}
	return nil, ErrNotFound
}

// asHelper converts a raw state row into a helper snapshot, reporting whether
// the row is a helper at all.
func (d *Discovery) asHelper(st EntityState) (Entity, bool) {
	domain, objectID, ok := SplitEntityID(st.EntityID)
	if !ok {
		if st.EntityID != "" {
			d.logger.Warn("skipping malformed entity id", "entity_id", st.EntityID)
		}
		return Entity{}, false
	}

	switch {
	case IsDirectDomain(domain):
		// Always a helper.
	case IsCandidateDomain(domain):
		if !LooksLikeHelper(st.EntityID, st.Attributes) {
			return Entity{}, false
		}
	default:
		return Entity{}, false
	}

	entity := Entity{
		EntityID: st.EntityID,
		Domain:   domain,
		ObjectID: objectID,
	}

	state := st.State
	entity.State = &state

	if len(st.Attributes) > 0 {
		entity.Attributes = make(map[string]any, len(st.Attributes))
		for k, v := range st.Attributes {
			entity.Attributes[k] = v
		}
		if name, ok := st.Attributes["friendly_name"].(string); ok {
			entity.FriendlyName = name
		}
	}
	return entity, true
}
