// internal/status/constants.go
package status

// Device Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of logical slots per device.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the device health state.
const SlotHealthCode = 0

// SlotLastStatusHi and SlotLastStatusLo hold the last OPC UA status code,
// high word first.
const (
	SlotLastStatusHi = 1
	SlotLastStatusLo = 2
)

// SlotSecondsInError holds the duration (in seconds) the device has been in error.
const SlotSecondsInError = 3

// SlotReconnects counts successful session reconnects (saturating).
const SlotReconnects = 4

// SlotFreshTags holds the number of tags with a fresh value.
const SlotFreshTags = 5

// ---- RESERVED RANGE ----

// Slots 6-10 are reserved for future use.
const (
	SlotReservedStart = 6
	SlotReservedEnd   = 10
)

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK means the session is up and every tag read good.
const HealthOK uint16 = 1

// HealthError means the session is down.
const HealthError uint16 = 2

// HealthStale means the session is up but at least one tag failed its last read.
const HealthStale uint16 = 3
