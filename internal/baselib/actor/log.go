package actor

import btclog "github.com/btcsuite/btclog/v2"

// log is the package-wide structured logger for actor lifecycle and message
// events. It defaults to a disabled logger so the package is silent until a
// caller wires one up via UseLogger, mirroring how lnd subsystems default to
// btclog.Disabled before the daemon's log setup runs.
var log btclog.Logger = btclog.Disabled

// UseLogger configures the structured logger used by this package's actors
// and mailboxes. Call it once during startup, before actors begin
// processing messages.
func UseLogger(logger btclog.Logger) {
	log = logger
}
