package models

// Offer categories in the order they are presented to the user.
const (
	OfferFlatrate = "flatrate"
	OfferFree     = "free"
	OfferAds      = "ads"
	OfferRent     = "rent"
	OfferBuy      = "buy"
)

// Provider is one watch provider offering a movie.
type Provider struct {
	ProviderID      int    `json:"provider_id,omitempty"`
	ProviderName    string `json:"provider_name"`
	LogoPath        string `json:"logo_path,omitempty"`
	DisplayPriority int    `json:"display_priority,omitempty"`
}

// RegionProviders is the availability of a movie in a single country.
type RegionProviders struct {
	Link     string     `json:"link,omitempty"`
	Flatrate []Provider `json:"flatrate,omitempty"`
	Free     []Provider `json:"free,omitempty"`
	Ads      []Provider `json:"ads,omitempty"`
	Rent     []Provider `json:"rent,omitempty"`
	Buy      []Provider `json:"buy,omitempty"`
}

// Category returns the providers listed under an offer category key.
func (r *RegionProviders) Category(key string) []Provider {
	if r == nil {
		return nil
	}
	switch key {
	case OfferFlatrate:
		return r.Flatrate
	case OfferFree:
		return r.Free
	case OfferAds:
		return r.Ads
	case OfferRent:
		return r.Rent
	case OfferBuy:
		return r.Buy
	}
	return nil
}

// Empty reports whether no offers exist.
func (r *RegionProviders) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Flatrate)+len(r.Free)+len(r.Ads)+len(r.Rent)+len(r.Buy) == 0
}

// WatchProviders is the upstream /movie/{id}/watch/providers payload.
type WatchProviders struct {
	ID      int64                      `json:"id"`
	Results map[string]RegionProviders `json:"results"`
}

// ProvidersResponse is returned by /api/movie/{id}/providers. The region
// field keeps the "gb" name existing clients read.
type ProvidersResponse struct {
	ID string           `json:"id"`
	GB *RegionProviders `json:"gb"`
}
