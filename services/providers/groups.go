package providers

import (
	"sort"

	"moviepicker/models"
)

// missingPriority sorts providers without a display priority last.
const missingPriority = 9999

// Category describes an offer type in presentation order.
type Category struct {
	Key   string
	Title string
}

// Categories lists offer types in the order they are shown.
var Categories = []Category{
	{Key: models.OfferFlatrate, Title: "Streaming (Subscription)"},
	{Key: models.OfferFree, Title: "Free"},
	{Key: models.OfferAds, Title: "Free with Ads"},
	{Key: models.OfferRent, Title: "Rent"},
	{Key: models.OfferBuy, Title: "Buy"},
}

// Entry is a provider ready for display.
type Entry struct {
	Name    string
	LogoURL string
}

// Group is one non-empty offer category.
type Group struct {
	Key     string
	Title   string
	Entries []Entry
}

// BuildGroups orders the region's offers for display, skipping empty
// categories. logoURL maps a logo path to an absolute URL.
func BuildGroups(region *models.RegionProviders, logoURL func(string) string) []Group {
	if region.Empty() {
		return nil
	}

	groups := make([]Group, 0, len(Categories))
	for _, cat := range Categories {
		list := region.Category(cat.Key)
		if len(list) == 0 {
			continue
		}

		sorted := make([]models.Provider, len(list))
		copy(sorted, list)
		sort.SliceStable(sorted, func(i, j int) bool {
			return priority(sorted[i]) < priority(sorted[j])
		})

		entries := make([]Entry, 0, len(sorted))
		for _, p := range sorted {
			e := Entry{Name: p.ProviderName}
			if p.LogoPath != "" && logoURL != nil {
				e.LogoURL = logoURL(p.LogoPath)
			}
			entries = append(entries, e)
		}
		groups = append(groups, Group{Key: cat.Key, Title: cat.Title, Entries: entries})
	}
	return groups
}

func priority(p models.Provider) int {
	if p.DisplayPriority == 0 {
		return missingPriority
	}
	return p.DisplayPriority
}
