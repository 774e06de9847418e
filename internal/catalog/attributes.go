package catalog

import (
	"strconv"
	"strings"

	"zwavenet/internal/domain"
)

// staticControllerClass is the basic device class OpenZWave reports for controllers
const staticControllerClass = "Static Controller"

// applyAttributes copies node attributes reported by the hub onto the record.
// Attributes missing from attrs leave the record untouched.
func applyAttributes(record *domain.DeviceRecord, attrs map[string]any) {
	if len(attrs) == 0 {
		return
	}

	if nodeID, ok := intAttr(attrs, "node_id"); ok && nodeID > 0 {
		record.NodeID = nodeID
	}
	if name, ok := attrs["friendly_name"].(string); ok && name != "" {
		record.Name = name
	}
	if raw, ok := attrs["neighbors"]; ok && raw != nil {
		record.Neighbors = intSlice(raw)
	}

	caps := &record.Capabilities
	for _, c := range stringSlice(attrs["capabilities"]) {
		switch c {
		case "primaryController":
			caps.PrimaryController = true
		case "routing":
			caps.Routing = true
		case "beaming":
			caps.Beaming = true
		case "listening":
			caps.Listening = true
		case "zwave_plus":
			caps.ZWavePlus = true
		case "secure", "security":
			caps.Secure = true
		}
	}

	caps.PrimaryController = caps.PrimaryController || boolAttr(attrs, "is_primary_controller")
	switch {
	case caps.PrimaryController:
		record.PrimaryInferred = false
	case !reportsPrimaryRole(attrs) && isController(attrs):
		caps.PrimaryController = true
		record.PrimaryInferred = true
	}
	caps.Routing = caps.Routing || boolAttr(attrs, "is_routing")
	caps.Beaming = caps.Beaming || boolAttr(attrs, "is_beaming")
	caps.Listening = caps.Listening || boolAttr(attrs, "is_listening")
	caps.Secure = caps.Secure || boolAttr(attrs, "is_secure") || boolAttr(attrs, "is_securityv1")
	caps.Failed = caps.Failed || boolAttr(attrs, "is_failed")
	caps.Awake = caps.Awake || boolAttr(attrs, "is_awake")
	caps.Ready = caps.Ready || boolAttr(attrs, "is_ready")
	caps.ZWavePlus = caps.ZWavePlus || boolAttr(attrs, "is_zwave_plus")

	if level, ok := intAttr(attrs, "battery_level"); ok {
		record.BatteryLevel = &level
	}
	if s := firstString(attrs, "product_name", "node_product_name"); s != "" {
		record.Product = s
	}
	if s := firstString(attrs, "manufacturer_name", "node_manufacturer_name"); s != "" {
		record.Manufacturer = s
	}
	if s := firstString(attrs, "query_stage", "node_query_stage"); s != "" {
		record.QueryStage = s
	}
}

// reportsPrimaryRole tells whether attrs state the primary role explicitly,
// in which case the controller class is not consulted.
func reportsPrimaryRole(attrs map[string]any) bool {
	_, hasCaps := attrs["capabilities"]
	_, hasFlag := attrs["is_primary_controller"]
	return hasCaps || hasFlag
}

func isController(attrs map[string]any) bool {
	if boolAttr(attrs, "is_controller") {
		return true
	}
	class, _ := attrs["node_basic_string"].(string)
	return class == staticControllerClass
}

func firstString(attrs map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := attrs[k].(string); ok && s != "" && s != "Unknown" {
			return s
		}
	}
	return ""
}

// boolAttr accepts JSON booleans as well as "true"/"True" strings
func boolAttr(attrs map[string]any, key string) bool {
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.ToLower(v))
		return err == nil && b
	default:
		return false
	}
}

func intAttr(attrs map[string]any, key string) (int, bool) {
	return toInt(attrs[key])
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	case string:
		i, err := strconv.Atoi(val)
		return i, err == nil
	default:
		return 0, false
	}
}

// intSlice converts a JSON array to node ids, skipping entries that are not numbers.
// A present but empty array yields an empty, non-nil slice.
func intSlice(v any) []int {
	items, ok := v.([]any)
	if !ok {
		if ints, ok := v.([]int); ok {
			return append([]int{}, ints...)
		}
		return nil
	}

	out := make([]int, 0, len(items))
	for _, item := range items {
		if i, ok := toInt(item); ok {
			out = append(out, i)
		}
	}
	return out
}

func stringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
