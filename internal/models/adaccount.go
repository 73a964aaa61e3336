package models

import "encoding/json"

// AdAccountElement represents one ad account as returned by the upstream
// /rest/adAccounts?q=search endpoint. All nested objects are optional:
// upstream freely omits totalBudget, version and changeAuditStamps, and has
// been observed to malform the budget amount. Only the id is guaranteed.
type AdAccountElement struct {
	ID                           json.Number        `json:"id"`
	Name                         string             `json:"name"`
	Status                       string             `json:"status"`
	Type                         string             `json:"type"`
	Test                         bool               `json:"test"`
	Currency                     string             `json:"currency"`
	Reference                    string             `json:"reference"`
	ServingStatuses              []string           `json:"servingStatuses"`
	TotalBudget                  *Money             `json:"totalBudget,omitempty"`
	TotalBudgetEndsAt            *int64             `json:"totalBudgetEndsAt,omitempty"`
	Version                      *Version           `json:"version,omitempty"`
	ChangeAuditStamps            *ChangeAuditStamps `json:"changeAuditStamps,omitempty"`
	NotifiedOnCreativeRejection  bool               `json:"notifiedOnCreativeRejection"`
	NotifiedOnCreativeApproval   bool               `json:"notifiedOnCreativeApproval"`
	NotifiedOnNewFeaturesEnabled bool               `json:"notifiedOnNewFeaturesEnabled"`
	NotifiedOnEndOfCampaign      bool               `json:"notifiedOnEndOfCampaign"`
}

// Money is an upstream monetary value. Amount arrives as a string.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Version carries the upstream optimistic-locking tag.
type Version struct {
	VersionTag string `json:"versionTag"`
}

// AuditStamp is an upstream audit entry; Time is epoch milliseconds.
type AuditStamp struct {
	Time  int64  `json:"time"`
	Actor string `json:"actor"`
}

// ChangeAuditStamps groups the created/lastModified audit entries.
type ChangeAuditStamps struct {
	Created      *AuditStamp `json:"created,omitempty"`
	LastModified *AuditStamp `json:"lastModified,omitempty"`
}

// AdAccountsPage is the paginated envelope for the ad accounts collection.
type AdAccountsPage struct {
	Elements []AdAccountElement `json:"elements"`
	Metadata PageMetadata       `json:"metadata"`
}

// PageMetadata holds the continuation token. An empty token means the
// collection is exhausted.
type PageMetadata struct {
	NextPageToken string `json:"nextPageToken,omitempty"`
}
