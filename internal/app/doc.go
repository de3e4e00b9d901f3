// Package app is the composition root of meshwatch.
//
// # Overview
//
// Run loads configuration, builds the controller client and starts a
// Session, then hands the session to either the TUI or the headless
// reporter. A Session owns every long-lived piece of client state:
//
//   - four polled resources (status, devices, logs, motion)
//   - the push channel and the router that turns push messages into
//     out-of-band refreshes
//   - the selected-device projection
//
// # Lifecycle
//
//	StartSession()
//	  ├─> resource.Start() x4      first fetch issued immediately
//	  ├─> router.Install()         device_status / motion_event / status_update
//	  └─> realtime.Dial()          reconnects on its own timer
//	Session.Close()
//	  └─> channel, then every resource; in-flight results are dropped
//
// Close is idempotent and safe to defer next to StartSession.
//
// # Commands
//
// Session.SendCommand is a single attempt. A failure comes back as a
// *controller.CommandError and is logged with its X-Request-ID; cached
// values are never touched. A success triggers a devices refetch.
//
// # Logging
//
// Headless mode logs JSON to stdout, including a "mesh state" line whenever
// the summary changes. The TUI logs JSON to log_file when configured.
package app
