package fleet

// Status classifies a device's liveness from its most recent poll outcome.
type Status string

const (
	// StatusUnknown means the device has been discovered but never polled.
	StatusUnknown Status = "unknown"

	// StatusOnline means the last probe returned a parseable health body.
	StatusOnline Status = "online"

	// StatusError means the device was reachable but returned a bad
	// response (non-200 status or unparseable body).
	StatusError Status = "error"

	// StatusOffline means the last probe could not reach the device
	// (timeout or transport failure).
	StatusOffline Status = "offline"
)

// String returns the status as its wire representation.
func (s Status) String() string {
	return string(s)
}
