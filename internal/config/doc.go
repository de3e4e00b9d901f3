// Package config loads the meshwatch configuration file.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/meshwatch/config.toml
//  3. If the file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing, empty or non-positive, use defaults
//
// MESHWATCH_CONTROLLER, when set, overrides the controller address after the
// file is read.
//
// # TOML Format
//
//	controller = "192.168.4.1"      # host[:port] or http(s) URL
//	push_path = "/ws"
//	log_file = "~/.local/state/meshwatch/meshwatch.log"
//
//	status_interval_sec = 10        # system status
//	devices_interval_sec = 5        # device roster, drives presence
//	logs_interval_sec = 30
//	motion_interval_sec = 60
//
//	reconnect_delay_sec = 5         # push channel reconnect delay
//	reconnect_max_sec = 0           # > reconnect_delay_sec enables backoff
//	request_timeout_sec = 10
//
//	log_limit = 50
//	motion_limit = 100
//
// Every field is optional. Tilde expansion is applied to log_file.
//
// # Derived URLs
//
// BaseURL and PushURL build the HTTP origin and the push-channel URL from the
// controller field alone: an https controller yields a wss push URL, anything
// else yields ws.
package config
