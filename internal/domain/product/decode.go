package product

import (
	"encoding/json"

	"hermes/pkg/errors"
)

// Decode converts a raw search payload into a typed Product. The category
// field selects which spec record is decoded; fields that do not belong to
// that category are ignored. Unknown or missing categories are an error, not
// a silent pass-through.
func Decode(payload map[string]interface{}) (Product, error) {
	if payload == nil {
		return Product{}, errors.Wrap(errors.ErrInvalidInput, "nil product payload")
	}

	category, err := ParseCategory(asString(payload["category"]))
	if err != nil {
		return Product{}, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	p := Product{
		ID:          asInt64(payload["id"]),
		Category:    category,
		Name:        asString(payload["name"]),
		Description: asString(payload["description"]),
		Price:       asFloat(payload["price"]),
		Stock:       int(asInt64(payload["stock"])),
		ImageURL:    asString(payload["image_primary_url"]),
	}
	if p.Name == "" {
		return Product{}, errors.Wrap(errors.ErrInvalidInput, "product payload missing name")
	}

	switch category {
	case CategoryIPhone:
		p.Spec = IPhoneSpec{
			Model:             asString(payload["model"]),
			Generation:        asString(payload["generation"]),
			StorageGB:         int(asInt64(payload["storage_gb"])),
			Colors:            asStrings(payload["colors"]),
			DisplaySize:       asString(payload["display_size"]),
			Chip:              asString(payload["chip"]),
			Cameras:           asStrings(payload["cameras"]),
			BatteryVideoHours: int(asInt64(payload["battery_video_hours"])),
		}
	case CategoryMac:
		p.Spec = MacSpec{
			ProductLine:    asString(payload["product_line"]),
			ScreenSize:     asString(payload["screen_size"]),
			Chip:           asString(payload["chip"]),
			RAMGB:          int(asInt64(payload["ram_gb_base"])),
			StorageGB:      int(asInt64(payload["storage_gb"])),
			BatteryHours:   int(asInt64(payload["battery_hours"])),
			TargetAudience: asString(payload["target_audience"]),
		}
	case CategoryIPad:
		p.Spec = IPadSpec{
			ProductLine:        asString(payload["product_line"]),
			Generation:         asString(payload["generation"]),
			ScreenSize:         asString(payload["screen_size"]),
			Chip:               asString(payload["chip"]),
			StorageGB:          int(asInt64(payload["storage_gb"])),
			CellularSupport:    asBool(payload["cellular_support"]),
			ApplePencilSupport: asString(payload["apple_pencil_support"]),
		}
	case CategoryAppleWatch:
		p.Spec = WatchSpec{
			Series:          asString(payload["series"]),
			CaseSizeMM:      int(asInt64(payload["case_size_mm"])),
			CaseMaterial:    asString(payload["case_material"]),
			Chip:            asString(payload["chip"]),
			CellularSupport: asBool(payload["cellular_support"]),
			HealthSensors:   asStrings(payload["health_sensors"]),
			BatteryHours:    int(asInt64(payload["battery_hours"])),
		}
	case CategoryAccessory:
		p.Spec = AccessorySpec{
			AccessoryType:      asString(payload["accessory_type"]),
			Compatibility:      asStrings(payload["compatibility"]),
			WirelessTechnology: asString(payload["wireless_technology"]),
			BatteryHours:       int(asInt64(payload["battery_hours"])),
			NoiseCancellation:  asBool(payload["noise_cancellation"]),
			SpecialFeatures:    asStrings(payload["special_features"]),
		}
	}

	return p, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

// asStrings accepts both native string slices and JSON-decoded []interface{}.
func asStrings(v interface{}) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []interface{}:
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
