package mqtt

import "fmt"

// Topic prefixes for the daemon's MQTT surface.
//
// All topics live under the flat scheme: owsync/{category}/...
const (
	// TopicPrefix is the base for all daemon topics.
	TopicPrefix = "owsync"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "owsync/system"
)

// Topics provides builders for the daemon's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.SyncState("10/aabbccddeeff/temperature/read")
//	// Returns: "owsync/state/10/aabbccddeeff/temperature/read"
type Topics struct{}

// SystemStatus returns the daemon online/offline topic. The connect
// announcement and the LWT both use it.
//
// Example: owsync/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemHealth returns the periodic health report topic.
//
// Example: owsync/system/health
func (Topics) SystemHealth() string {
	return fmt.Sprintf("%s/health", TopicPrefixSystem)
}

// SyncState returns the topic mirroring one sync path's working/error state.
// path is the attribute's store path relative to the tree prefix, with the
// operation suffix ("read" or "write").
//
// Example: owsync/state/10/aabbccddeeff/temperature/write
func (Topics) SyncState(path string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, path)
}

// Reading returns the topic for one device attribute's polled readings.
//
// Example: owsync/reading/10.aabbccddeeff/temperature
func (Topics) Reading(address, attribute string) string {
	return fmt.Sprintf("%s/reading/%s/%s", TopicPrefix, address, attribute)
}

// AllSyncStates returns a pattern matching every sync path state.
//
// Pattern: owsync/state/#
func (Topics) AllSyncStates() string {
	return fmt.Sprintf("%s/state/#", TopicPrefix)
}

// AllReadings returns a pattern matching every polled reading.
//
// Pattern: owsync/reading/+/+
func (Topics) AllReadings() string {
	return fmt.Sprintf("%s/reading/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all daemon topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: owsync/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
