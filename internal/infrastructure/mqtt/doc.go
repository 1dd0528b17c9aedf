// Package mqtt publishes the audit's run status back into Home Assistant.
//
// After each analysis run a summary lands on a discovery-configured MQTT
// sensor, so dashboards and automations can watch orphan counts without
// polling the report API. The client is publish-only: connection
// management, Last Will availability and retained state topics, nothing
// else. When MQTT is disabled in config the rest of the service runs
// without it.
package mqtt
