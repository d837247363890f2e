package model

// PairingState is the explicit state of a scan-pairing session. The
// completed state is never stored: completion commits the association
// and removes the session.
type PairingState string

const (
	PairingStateEmpty      PairingState = "empty"
	PairingStateHasItem    PairingState = "has_item"
	PairingStateHasStorage PairingState = "has_storage"
)

// PendingScan is one remembered side of a pairing session.
type PendingScan struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PairingSession is the per-account scan-pairing session persisted in
// session storage. Version supports optimistic concurrency: a save with
// a stale version is rejected rather than silently overwritten.
type PairingSession struct {
	State   PairingState `json:"state"`
	Item    *PendingScan `json:"item,omitempty"`
	Storage *PendingScan `json:"storage,omitempty"`
	Version int64        `json:"version"`
}

// NewPairingSession returns an empty session.
func NewPairingSession() *PairingSession {
	return &PairingSession{State: PairingStateEmpty}
}
