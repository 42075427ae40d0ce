// Package bridge exposes the discovery engine to local clients over WebSocket.
//
// Clients connect to /ws and send JSON commands:
//
//	{"id":"1","method":"startDiscovery","options":{"discoveryTimeout":5000,"targetPort":8008}}
//	{"id":"2","method":"stopDiscovery"}
//
// Each command gets a reply carrying the same id. An accepted start replies
// with "Discovery started with timeout: <ms> and port: <port>". Omitted
// options fall back to the server defaults (10000 ms, port -1).
//
// Session events are broadcast to every connected client:
//
//	{"event":"SSDPResponse","data":"http://192.168.1.20:8008/ssdp/device-desc.xml"}
//	{"event":"SSDPError","data":"receive failed: ..."}
//	{"event":"SSDPStopped","data":"Discovery completed"}
//
// SSDPStopped ends every session, including failed ones. GET /status
// reports whether a session is running and how many clients are connected.
package bridge
