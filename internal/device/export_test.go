package device

// HandleNotification exposes the notification path for tests that need to
// inject payloads the fake transport would not route.
func (d *Device) HandleNotification(uuid string, data []byte) {
	d.handleNotification(uuid, data)
}
