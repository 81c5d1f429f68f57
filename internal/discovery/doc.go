// Package discovery provides mDNS-based passive discovery of EweGo
// devices.
//
// Devices advertise themselves under the "_ewego._tcp" service type in
// the "local." domain, carrying their identity in TXT properties:
//
//	device_id=americanPI
//	service=EweGo System Health
//	version=1.0
//	path=/
//	api=/api/health
//
// # Listener vs. Browse
//
// The Listener runs as a long-lived background subscriber and tracks
// which devices are currently announcing; the discovery coordinator
// folds its snapshot into the fleet directory each cycle. Browse is a
// one-shot timed discovery used by the discover CLI command.
//
// # Removal Semantics
//
// A goodbye announcement (TTL 0) removes the device from the
// listener's present set only. The fleet directory keeps the entry and
// the health poller drives it to "offline" when probes stop answering,
// so announcement churn never flaps the operator-visible status.
//
// # Failure Tolerance
//
// Decoding any single announcement may fail (malformed TXT metadata)
// without disrupting later announcements, and a browse whose entry
// stream dies is restarted after a short delay.
//
// # Network Requirements
//
// Requires multicast support on the local segment and UDP port 5353
// open; WSL and some WiFi setups block this, which is what the active
// subnet scanner is for.
package discovery
