package models

import "time"

// Organization is the local, flattened shape of an upstream organization.
// OrganizationID is the natural key. CreatedAt/LastModifiedAt default to the
// sync time because organization lookups carry no audit payload upstream.
type Organization struct {
	OrganizationID          string    `db:"organization_id" json:"organizationId"`
	Name                    *string   `db:"name" json:"name"`
	LocalizedName           *string   `db:"localized_name" json:"localizedName"`
	Industries              []string  `db:"industries" json:"industries"`
	FoundedYear             *int      `db:"founded_year" json:"foundedYear"`
	Headquarters            *string   `db:"headquarters" json:"headquarters"`
	WebsiteURL              *string   `db:"website_url" json:"websiteUrl"`
	EmployeeCountRange      *string   `db:"employee_count_range" json:"employeeCountRange"`
	Specialties             []string  `db:"specialties" json:"specialties"`
	PrimaryOrganizationType *string   `db:"primary_organization_type" json:"primaryOrganizationType"`
	CreatedAt               time.Time `db:"created_at" json:"createdAt"`
	LastModifiedAt          time.Time `db:"last_modified_at" json:"lastModifiedAt"`
}

// NaturalKey returns the upstream-issued organization ID.
func (o Organization) NaturalKey() string { return o.OrganizationID }
