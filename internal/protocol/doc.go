// Package protocol describes the GATT wire contract of the sleep-system
// peripheral: which characteristic carries which state field, how many bytes
// it occupies, and how its payload is decoded and encoded.
//
// The characteristic map differs between firmware revisions. Each revision is
// modelled as a Profile selected when a device handle is constructed; the
// built-in "v1" profile covers the original four-characteristic firmware and
// additional revisions are loaded from YAML profile files.
package protocol
