package cache

import "strings"

// Key is a hierarchical cache key, most general segment first. Every entry
// whose key starts with a given prefix is a dependent of that prefix and is
// invalidated with it.
type Key []string

// NewKey builds a key from its segments.
func NewKey(segments ...string) Key {
	return Key(segments)
}

func (k Key) String() string {
	return strings.Join(k, ":")
}

// HasPrefix reports whether k starts with the given prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// Key builders for the entities this client tracks.

func BookingListKey(filter string) Key {
	if filter == "" {
		return Key{"bookings", "list"}
	}
	return Key{"bookings", "list", filter}
}

func BookingDetailKey(id string) Key {
	return Key{"bookings", "detail", id}
}

func DashboardMetricsKey() Key {
	return Key{"provider-dashboard", "metrics"}
}

func FavoritesKey() Key {
	return Key{"user", "favorites"}
}

func ProviderDetailKey(id string) Key {
	return Key{"providers", "detail", id}
}

func ProviderReviewsKey(id string) Key {
	return Key{"providers", "detail", id, "reviews"}
}

func ProviderRatingKey(id string) Key {
	return Key{"providers", "detail", id, "rating"}
}

func MyReviewsKey() Key {
	return Key{"reviews", "my-reviews"}
}

// Dependent-prefix sets invalidated after each successful mutation.

func CreateBookingInvalidations() []Key {
	return []Key{
		{"bookings", "list"},
		{"provider-dashboard", "metrics"},
	}
}

func UpdateBookingStatusInvalidations(id string) []Key {
	return []Key{
		{"bookings", "detail", id},
		{"bookings", "list"},
	}
}

func FavoriteInvalidations(providerID string) []Key {
	return []Key{
		{"user", "favorites"},
		{"providers", "detail", providerID},
	}
}

func ReviewInvalidations(providerID string) []Key {
	return []Key{
		{"providers", "detail", providerID, "reviews"},
		{"providers", "detail", providerID, "rating"},
		{"reviews", "my-reviews"},
	}
}
