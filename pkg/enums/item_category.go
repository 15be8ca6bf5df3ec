package enums

import "fmt"

// ItemCategory is the catalog grouping shown on the POS screen.
type ItemCategory string

const (
	ItemCategoryFood  ItemCategory = "Food"
	ItemCategoryDrink ItemCategory = "Drink"
	ItemCategoryOther ItemCategory = "Other"
)

var validItemCategories = []ItemCategory{
	ItemCategoryFood,
	ItemCategoryDrink,
	ItemCategoryOther,
}

// String implements fmt.Stringer.
func (c ItemCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ItemCategory.
func (c ItemCategory) IsValid() bool {
	for _, candidate := range validItemCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemCategory converts raw input into an ItemCategory.
func ParseItemCategory(value string) (ItemCategory, error) {
	for _, candidate := range validItemCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item category %q", value)
}

// ItemCategoryValues lists the accepted values, e.g. for validation messages.
func ItemCategoryValues() []string {
	out := make([]string, 0, len(validItemCategories))
	for _, c := range validItemCategories {
		out = append(out, string(c))
	}
	return out
}
