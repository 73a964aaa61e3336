package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrganizationURNPrefix is the upstream URN prefix an ad account's reference
// carries when it points at an owning organization.
const OrganizationURNPrefix = "urn:li:organization:"

// AdAccount is the local, flattened shape of an upstream advertising account.
// AdAccountID is the natural key: it is issued upstream and never generated
// locally, and at most one row exists per value no matter how many sync
// cycles run.
type AdAccount struct {
	AdAccountID                  string           `db:"ad_account_id" json:"adAccountId"`
	UserID                       *uuid.UUID       `db:"user_id" json:"userId"`
	Name                         string           `db:"name" json:"name"`
	Status                       string           `db:"status" json:"status"`
	Type                         string           `db:"type" json:"type"`
	Test                         bool             `db:"test" json:"test"`
	Currency                     string           `db:"currency" json:"currency"`
	TotalBudgetAmount            *decimal.Decimal `db:"total_budget_amount" json:"totalBudgetAmount"`
	TotalBudgetCurrencyCode      *string          `db:"total_budget_currency_code" json:"totalBudgetCurrencyCode"`
	TotalBudgetEndsAt            *time.Time       `db:"total_budget_ends_at" json:"totalBudgetEndsAt"`
	ServingStatuses              []string         `db:"serving_statuses" json:"servingStatuses"`
	Reference                    *string          `db:"reference" json:"reference"`
	VersionTag                   *string          `db:"version_tag" json:"versionTag"`
	NotifiedOnCreativeRejection  bool             `db:"notified_on_creative_rejection" json:"notifiedOnCreativeRejection"`
	NotifiedOnCreativeApproval   bool             `db:"notified_on_creative_approval" json:"notifiedOnCreativeApproval"`
	NotifiedOnNewFeaturesEnabled bool             `db:"notified_on_new_features_enabled" json:"notifiedOnNewFeaturesEnabled"`
	NotifiedOnEndOfCampaign      bool             `db:"notified_on_end_of_campaign" json:"notifiedOnEndOfCampaign"`
	CreatedAt                    *time.Time       `db:"created_at" json:"createdAt"`
	CreatedActor                 *string          `db:"created_actor" json:"createdActor"`
	LastModifiedAt               *time.Time       `db:"last_modified_at" json:"lastModifiedAt"`
	LastModifiedActor            *string          `db:"last_modified_actor" json:"lastModifiedActor"`
}

// NaturalKey returns the upstream-issued account ID.
func (a AdAccount) NaturalKey() string { return a.AdAccountID }

// OrganizationID resolves the referenced organization ID by stripping the
// URN prefix, or "" when the account references no organization. The linkage
// is resolved at display time, not stored as a foreign key, because
// organizations are fetched independently and may not exist locally yet.
func (a AdAccount) OrganizationID() string {
	if a.Reference == nil || !strings.HasPrefix(*a.Reference, OrganizationURNPrefix) {
		return ""
	}
	return strings.TrimPrefix(*a.Reference, OrganizationURNPrefix)
}
