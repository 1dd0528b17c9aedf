// Package hass is the Home Assistant WebSocket API client.
//
// The audit treats Home Assistant as an external read-mostly collaborator:
// entity discovery pulls the full state list through it, and the deletion
// runner invokes per-domain remove services. Both go through the
// authenticated WebSocket command protocol with every round trip bounded
// by the configured call timeout.
package hass
