// Package bledb names Bluetooth SIG assigned numbers so logs and listings
// can show "Device Name" instead of "2a00". It covers the standard GATT
// attributes a sleep-system peripheral exposes next to its vendor service.
package bledb

import "github.com/srg/ooler/internal/protocol"

var services = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180f": "Battery Service",
}

var characteristics = map[string]string{
	"2a00": "Device Name",
	"2a01": "Appearance",
	"2a04": "Peripheral Preferred Connection Parameters",
	"2a05": "Service Changed",
	"2a19": "Battery Level",
	"2a23": "System ID",
	"2a24": "Model Number String",
	"2a25": "Serial Number String",
	"2a26": "Firmware Revision String",
	"2a27": "Hardware Revision String",
	"2a28": "Software Revision String",
	"2a29": "Manufacturer Name String",
}

func lookup(table map[string]string, uuid string) string {
	key, err := protocol.NormalizeUUID(uuid)
	if err != nil {
		return ""
	}
	return table[key]
}

// LookupService returns the SIG name of a service UUID, or "".
func LookupService(uuid string) string {
	return lookup(services, uuid)
}

// LookupCharacteristic returns the SIG name of a characteristic UUID, or "".
func LookupCharacteristic(uuid string) string {
	return lookup(characteristics, uuid)
}
