package domain

import (
	"chatrooms/errors"
	"fmt"
	"slices"
	"sort"
)

// regions maps every supported region to its provinces.
var regions = map[string][]string{
	"Metro Manila":    {"Manila", "Quezon City", "Makati", "Pasig", "Taguig"},
	"Calabarzon":      {"Cavite", "Laguna", "Batangas", "Rizal", "Quezon"},
	"Central Luzon":   {"Bulacan", "Pampanga", "Nueva Ecija", "Tarlac", "Zambales"},
	"Western Visayas": {"Iloilo", "Negros Occidental", "Capiz", "Aklan", "Antique"},
	"Central Visayas": {"Cebu", "Bohol", "Negros Oriental", "Siquijor"},
	"Davao Region":    {"Davao del Sur", "Davao del Norte", "Davao Oriental", "Davao Occidental"},
}

// ValidateLocation checks that region is known and that province belongs to it.
func ValidateLocation(region, province string) error {
	provinces, ok := regions[region]
	if !ok {
		return fmt.Errorf("%w: unknown region %q", errors.ErrValidation, region)
	}
	if !slices.Contains(provinces, province) {
		return fmt.Errorf("%w: province %q does not belong to region %q", errors.ErrValidation, province, region)
	}
	return nil
}

func Regions() []string {
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Provinces(region string) []string {
	return slices.Clone(regions[region])
}
