// Package controller provides an HTTP client for the mesh controller API.
//
// # Overview
//
// The controller is the hub of the sensor mesh. It exposes a small REST API
// for system status, the device roster, device logs and motion events, and
// accepts one-shot device commands. This package is the only code that
// speaks that API.
//
// # Architecture
//
//   - client.go: Client, URL handling and request plumbing
//   - types.go: wire types mirroring the controller's JSON
//   - errors.go: the error taxonomy returned by every call
//
// # Client Usage
//
//	client, err := controller.NewClient("192.168.4.1", 10*time.Second)
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	status, err := client.FetchStatus(ctx)
//	if err != nil {
//		log.Printf("status fetch failed: %v", err)
//	}
//
//	_, err = client.SendCommand(ctx, "dev-2", "capture", map[string]any{"mode": "burst", "frames": 5})
//
// # API Endpoints
//
//   - GET /api/v1/status: uptime, device counts, mesh RSSI, memory
//   - GET /api/v1/devices: the device roster (order not guaranteed)
//   - GET /api/logs?limit=N[&device_id=ID]: recent device logs
//   - GET /api/motion?limit=N: recent motion events
//   - POST /api/v1/command: {device_id, command, payload}
//
// The push channel lives at ws(s)://<host><push_path>; PushURL derives it
// from the same origin. Package realtime owns the connection itself.
//
// # Commands
//
// SendCommand validates the request before anything is sent: device id and
// command are required. Each request carries an X-Request-ID header so a
// failure in the controller's own logs can be matched to the client side.
// There are no retries; the caller decides.
//
// # Error Handling
//
//   - *NetworkError: the request never produced a response
//   - *HTTPError: a non-2xx status, with a short body snippet
//   - *ParseError: the body was not the JSON we expected
//   - *CommandError: any SendCommand failure, wrapping one of the above
//
// Use errors.As to tell them apart. An empty 2xx body decodes to the zero
// value rather than failing.
//
// # Timestamp Parsing
//
// Devices, logs and motion events expose parsed timestamps. RFC3339Nano,
// RFC3339 and "2006-01-02 15:04:05" (local time) are accepted; anything
// else yields time.Time{}.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package controller
