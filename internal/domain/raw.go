package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RawDevice is one entry of the device registry (config/device_registry/list)
type RawDevice struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	NameByUser   string  `json:"name_by_user,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	Model        string  `json:"model,omitempty"`
	SWVersion    string  `json:"sw_version,omitempty"`
	AreaID       string  `json:"area_id,omitempty"`
	Identifiers  [][]any `json:"identifiers,omitempty"`
}

// DisplayName returns the user-assigned name, falling back to the integration name
func (d RawDevice) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

// IdentifierParts returns the first identifier tuple as strings.
// Numbers are rendered without a fractional part.
func (d RawDevice) IdentifierParts() []string {
	if len(d.Identifiers) == 0 || d.Identifiers[0] == nil {
		return nil
	}

	parts := make([]string, 0, len(d.Identifiers[0]))
	for _, part := range d.Identifiers[0] {
		parts = append(parts, identifierString(part))
	}
	return parts
}

func identifierString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// RawEntity is one entry of the entity registry (config/entity_registry/list)
type RawEntity struct {
	EntityID     string `json:"entity_id"`
	DeviceID     string `json:"device_id,omitempty"`
	Platform     string `json:"platform,omitempty"`
	Name         string `json:"name,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
	DisabledBy   string `json:"disabled_by,omitempty"`
}

// State is one entry of the state machine (get_states, /api/states)
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// Domain returns the entity domain (the part before the first dot)
func (s State) Domain() string {
	domain, _, found := strings.Cut(s.EntityID, ".")
	if !found {
		return ""
	}
	return domain
}

// Entity is a registry entity joined with its current state
type Entity struct {
	RawEntity
	State *State `json:"state,omitempty"`
}
