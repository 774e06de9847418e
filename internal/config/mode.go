package config

// Mode selects where poll cycles read the hub collections from
type Mode string

const (
	ModeRemote Mode = "remote" // poll the hub over its websocket API
	ModeLocal  Mode = "local"  // replay the payloads cached by the last remote cycle
)

// ParseMode converts a string to Mode, defaulting to ModeRemote
func ParseMode(s string) Mode {
	switch s {
	case "local":
		return ModeLocal
	default:
		return ModeRemote
	}
}

// IsLocal reports whether the hub is never contacted
func (m Mode) IsLocal() bool {
	return m == ModeLocal
}
