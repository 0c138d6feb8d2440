package inet

import (
	"defs"
	"hashtable"
)

// portTable maps a bound port to its listening Socket, the concurrent
// structure multiple binding/connecting threads hammer at once --
// grounded on hashtable.Hashtable_t's lock-striped bucket design, the
// same structure the teacher reaches for instead of one giant
// mutex-guarded map.
var portTable = hashtable.MkHash(64)

/// Register publishes s as the listener for its bound port, so that
/// DialPort (used by tests to simulate an inbound connection) can find it without the caller needing a direct reference
/// to the listening Socket.
func (s *Socket) Register() {
	portTable.Set(s.local.Port, s)
}

/// Unregister removes s's port binding, called from Close.
func (s *Socket) Unregister() {
	portTable.Del(s.local.Port)
}

/// DialPort simulates a remote peer connecting to a locally bound,
/// listening port: it looks the listener up in portTable and calls
/// Connect on its behalf.
func DialPort(port uint16, remote Addr) (*Socket, defs.Err_t) {
	v, ok := portTable.Get(port)
	if !ok {
		return nil, -defs.ECONNREFUSED
	}
	return v.(*Socket).Connect(remote)
}
