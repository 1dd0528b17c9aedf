package hass

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ferncroft/helper-audit/internal/helper"
)

// States fetches the full state list. Implements helper.StateSource, so a
// connected client plugs straight into entity discovery.
//
// Parameters:
//   - ctx: Bounds the round trip together with the configured timeout
//
// Returns:
//   - []helper.EntityState: Every entity's state and attributes
//   - error: Transport or protocol failure
func (c *Client) States(ctx context.Context) ([]helper.EntityState, error) {
	raw, err := c.command(ctx, map[string]any{"type": "get_states"})
	if err != nil {
		return nil, err
	}

	var states []helper.EntityState
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("decoding states: %w", err)
	}
	return states, nil
}

// CallService invokes a Home Assistant service against one entity.
// Deletion uses this with the helper domain's remove service, e.g.
// input_boolean.remove targeting input_boolean.old_toggle.
//
// Parameters:
//   - ctx: Bounds the round trip
//   - domain: Service domain (usually the entity's own domain)
//   - service: Service name within the domain
//   - entityID: Target entity
//
// Returns:
//   - error: ErrCallFailed when the server rejects the call
func (c *Client) CallService(ctx context.Context, domain, service, entityID string) error {
	_, err := c.command(ctx, map[string]any{
		"type":    "call_service",
		"domain":  domain,
		"service": service,
		"target": map[string]any{
			"entity_id": entityID,
		},
	})
	return err
}
