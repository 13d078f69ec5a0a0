package product

import (
	"strings"

	"hermes/pkg/errors"
)

// Category enumerates the product families the catalog carries. Each
// category has its own spec record type; Product holds exactly one of them.
type Category string

const (
	CategoryIPhone     Category = "iphone"
	CategoryMac        Category = "mac"
	CategoryIPad       Category = "ipad"
	CategoryAppleWatch Category = "apple_watch"
	CategoryAccessory  Category = "accessory"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// ParseCategory normalizes and validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryIPhone, CategoryMac, CategoryIPad, CategoryAppleWatch, CategoryAccessory:
		return c, nil
	default:
		return "", errors.Newf("unknown product category %q", s)
	}
}

// Product is one catalog entry. Spec carries the category-specific record;
// its concrete type always corresponds to Category.
type Product struct {
	ID          int64
	Category    Category
	Name        string
	Description string
	Price       float64
	Stock       int
	ImageURL    string
	Spec        Spec
}

// Spec is the category-specific portion of a product record.
type Spec interface {
	SpecCategory() Category
}

// IPhoneSpec describes an iPhone model.
type IPhoneSpec struct {
	Model             string
	Generation        string
	StorageGB         int
	Colors            []string
	DisplaySize       string
	Chip              string
	Cameras           []string
	BatteryVideoHours int
}

func (IPhoneSpec) SpecCategory() Category { return CategoryIPhone }

// MacSpec describes a Mac model.
type MacSpec struct {
	ProductLine    string
	ScreenSize     string
	Chip           string
	RAMGB          int
	StorageGB      int
	BatteryHours   int
	TargetAudience string
}

func (MacSpec) SpecCategory() Category { return CategoryMac }

// IPadSpec describes an iPad model.
type IPadSpec struct {
	ProductLine        string
	Generation         string
	ScreenSize         string
	Chip               string
	StorageGB          int
	CellularSupport    bool
	ApplePencilSupport string
}

func (IPadSpec) SpecCategory() Category { return CategoryIPad }

// WatchSpec describes an Apple Watch model.
type WatchSpec struct {
	Series          string
	CaseSizeMM      int
	CaseMaterial    string
	Chip            string
	CellularSupport bool
	HealthSensors   []string
	BatteryHours    int
}

func (WatchSpec) SpecCategory() Category { return CategoryAppleWatch }

// AccessorySpec describes an accessory (AirPods, cases, chargers).
type AccessorySpec struct {
	AccessoryType      string
	Compatibility      []string
	WirelessTechnology string
	BatteryHours       int
	NoiseCancellation  bool
	SpecialFeatures    []string
}

func (AccessorySpec) SpecCategory() Category { return CategoryAccessory }

// Match is one vector-search hit: a decoded product with its similarity score.
type Match struct {
	Score   float64
	Product Product
}
