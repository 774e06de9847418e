package hass

import "encoding/json"

// Request types sent over the websocket API
const (
	TypeDeviceRegistryList = "config/device_registry/list"
	TypeEntityRegistryList = "config/entity_registry/list"
	TypeGetStates          = "get_states"
	TypeOZWNodeStatus      = "ozw/node_status"
)

// Message types received from the hub
const (
	typeAuth         = "auth"
	typeAuthRequired = "auth_required"
	typeAuthOK       = "auth_ok"
	typeAuthInvalid  = "auth_invalid"
	typeResult       = "result"
)

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// ErrorInfo is the error object of an unsuccessful response
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Response is a message read from the hub
type Response struct {
	ID        int             `json:"id"`
	Type      string          `json:"type"`
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ErrorInfo      `json:"error,omitempty"`
	HAVersion string          `json:"ha_version,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// IsResult reports whether the message answers a request.
// Some hub versions omit the type on results, so an untyped message
// carrying a request id counts as one.
func (r *Response) IsResult() bool {
	switch r.Type {
	case typeResult:
		return true
	case "":
		return r.ID > 0
	default:
		return false
	}
}
