// Package config loads the dashboard's YAML configuration.
//
// Configuration is optional: an absent file yields working defaults
// (scan the local /24 every 30s, poll health every 2s, serve on
// 0.0.0.0:5000). Durations are integers in the file, suffixed by unit:
//
//	server:
//	  host: 0.0.0.0
//	  port: 5000
//	discovery:
//	  interval_s: 30
//	  network: 192.168.1.0/24
//	  scan: true
//	  mdns: true
//	  device_port: 5000
//	  concurrency: 50
//	  scan_timeout_ms: 1000
//	poll:
//	  interval_s: 2
//	  timeout_ms: 3000
//
// Values from the file are validated on load; serve-command flags
// override individual fields afterwards.
package config
