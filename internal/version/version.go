// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.4.0"

// Milestones:
// 0.4.0 - WebSocket bridge for browser renderers, telemetry sinks, benchmark mode
// 0.3.0 - Accurate mode from Horizons snapshots, Live positions with analytic fallback
// 0.2.0 - Galaxy and universe layers, scale ladder, point budgets, adaptive resolution
// 0.1.0 - Initial release: simulated orrery, camera rig, terminal view
