package device

// DiscoveryDelegate receives discovery results as they arrive. Implemented by
// the UI layer (or CLI); the discovery manager is the only caller.
type DiscoveryDelegate interface {
	// OnDeviceDiscovered is called once per newly discovered device within a
	// full sweep.
	OnDeviceDiscovered(dev *Device)

	// OnDevicesDiscoveredIncremental delivers the batch accumulated by an
	// incremental sweep when the sweep window closes.
	OnDevicesDiscoveredIncremental(devs []*Device)

	// OnDiscoveryFinished is called when a sweep's window has closed and all
	// search targets have completed.
	OnDiscoveryFinished()

	// OnDiscoveryMessageChanged reports a user-facing status line.
	OnDiscoveryMessageChanged(text string)
}

// ConnectionDelegate receives connection lifecycle events from the
// orchestrator.
type ConnectionDelegate interface {
	OnConnected(dev *Device)
	OnDisconnected(dev *Device)
	OnError(err error)

	// OnPinRequested signals that the device is showing a PIN that the user
	// must type into the app. The service blocks until ProvidePin is called
	// or the attempt times out.
	OnPinRequested(dev *Device)

	OnDevicesDiscovered(devs []*Device)
}

// Telemetry is the discovery telemetry sink. SearchFailed fires at most once
// per sweep; SearchSucceeded batches devices not previously reported in this
// app session.
type Telemetry interface {
	SearchSucceeded(devs []*Device)
	SearchFailed()
}
