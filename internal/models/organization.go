package models

// OrganizationResult represents one organization as returned by the upstream
// /rest/organizationsLookup endpoint. The response is keyed by organization
// ID, so the ID itself is not repeated inside the payload. Unlike ad
// accounts, organization lookups carry no audit stamps at all.
type OrganizationResult struct {
	Name                    *LocalizedString `json:"name,omitempty"`
	LocalizedName           string           `json:"localizedName"`
	LocalizedWebsite        string           `json:"localizedWebsite"`
	Industries              []string         `json:"industries"`
	FoundedOn               *FoundedOn       `json:"foundedOn,omitempty"`
	Headquarters            *Headquarters    `json:"headquarters,omitempty"`
	EmployeeCountRange      *IntegerRange    `json:"employeeCountRange,omitempty"`
	Specialties             []string         `json:"specialties"`
	PrimaryOrganizationType string           `json:"primaryOrganizationType"`
}

// LocalizedString is upstream's locale-keyed string representation.
// Localized maps "<language>_<country>" keys to translated values.
type LocalizedString struct {
	Localized       map[string]string `json:"localized"`
	PreferredLocale *Locale           `json:"preferredLocale,omitempty"`
}

// Locale identifies a language/country pair, e.g. en/US.
type Locale struct {
	Language string `json:"language"`
	Country  string `json:"country"`
}

// FoundedOn carries the founding year.
type FoundedOn struct {
	Year int `json:"year"`
}

// Headquarters is the upstream headquarters address. Every field is optional.
type Headquarters struct {
	City           string `json:"city"`
	GeographicArea string `json:"geographicArea"`
	Country        string `json:"country"`
	Line1          string `json:"line1"`
	PostalCode     string `json:"postalCode"`
}

// IntegerRange is an upstream closed range, e.g. an employee count band.
type IntegerRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// OrganizationsLookup is the map-shaped envelope for organization lookups.
// Note the shape differs from the ad accounts collection: a results map
// keyed by organization ID instead of an elements array.
type OrganizationsLookup struct {
	Results map[string]OrganizationResult `json:"results"`
}
