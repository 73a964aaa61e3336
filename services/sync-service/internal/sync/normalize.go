package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	upstream "github.com/lmsapps/adsync/internal/models"
	"github.com/lmsapps/adsync/services/sync-service/internal/models"
)

// NormalizeAdAccount maps one upstream ad account into the local flat shape.
// Every optional nested object (totalBudget, changeAuditStamps, version) is
// read defensively: absence yields the field's null/default, never a fault.
// Only the natural key is load-bearing; a missing id is an error.
func NormalizeAdAccount(raw upstream.AdAccountElement, userID uuid.UUID) (models.AdAccount, error) {
	id := raw.ID.String()
	if id == "" {
		return models.AdAccount{}, &NormalizationError{Kind: KindAdAccounts, MissingField: "id"}
	}

	owner := userID
	acct := models.AdAccount{
		AdAccountID:                  id,
		UserID:                       &owner,
		Name:                         raw.Name,
		Status:                       raw.Status,
		Type:                         raw.Type,
		Test:                         raw.Test,
		Currency:                     raw.Currency,
		ServingStatuses:              raw.ServingStatuses,
		Reference:                    stringToPtr(raw.Reference),
		TotalBudgetEndsAt:            epochMillisToTime(raw.TotalBudgetEndsAt),
		NotifiedOnCreativeRejection:  raw.NotifiedOnCreativeRejection,
		NotifiedOnCreativeApproval:   raw.NotifiedOnCreativeApproval,
		NotifiedOnNewFeaturesEnabled: raw.NotifiedOnNewFeaturesEnabled,
		NotifiedOnEndOfCampaign:      raw.NotifiedOnEndOfCampaign,
	}
	if acct.ServingStatuses == nil {
		acct.ServingStatuses = []string{}
	}

	if raw.TotalBudget != nil {
		// Upstream has been observed to omit or malform the amount;
		// a bad parse is null, not a fault.
		if amount, err := decimal.NewFromString(raw.TotalBudget.Amount); err == nil {
			acct.TotalBudgetAmount = &amount
		}
		acct.TotalBudgetCurrencyCode = stringToPtr(raw.TotalBudget.CurrencyCode)
	}

	if raw.Version != nil {
		acct.VersionTag = stringToPtr(raw.Version.VersionTag)
	}

	if stamps := raw.ChangeAuditStamps; stamps != nil {
		if stamps.Created != nil {
			acct.CreatedAt = epochMillisToTime(&stamps.Created.Time)
			acct.CreatedActor = stringToPtr(stamps.Created.Actor)
		}
		if stamps.LastModified != nil {
			acct.LastModifiedAt = epochMillisToTime(&stamps.LastModified.Time)
			acct.LastModifiedActor = stringToPtr(stamps.LastModified.Actor)
		}
	}

	return acct, nil
}

// NormalizeOrganization maps one upstream organization into the local flat
// shape. Organization lookups carry no audit payload at all, so both audit
// fields fall back to now. Ad accounts default theirs to null instead; the
// asymmetry matches observed upstream behavior and is kept deliberately.
func NormalizeOrganization(id string, raw upstream.OrganizationResult, now time.Time) (models.Organization, error) {
	if id == "" {
		return models.Organization{}, &NormalizationError{Kind: KindOrganizations, MissingField: "id"}
	}

	org := models.Organization{
		OrganizationID:          id,
		Name:                    localizedName(raw.Name),
		LocalizedName:           stringToPtr(raw.LocalizedName),
		Industries:              raw.Industries,
		Headquarters:            formatHeadquarters(raw.Headquarters),
		WebsiteURL:              stringToPtr(raw.LocalizedWebsite),
		EmployeeCountRange:      formatEmployeeCountRange(raw.EmployeeCountRange),
		Specialties:             raw.Specialties,
		PrimaryOrganizationType: stringToPtr(raw.PrimaryOrganizationType),
		CreatedAt:               now.UTC(),
		LastModifiedAt:          now.UTC(),
	}
	if org.Industries == nil {
		org.Industries = []string{}
	}
	if org.Specialties == nil {
		org.Specialties = []string{}
	}

	if raw.FoundedOn != nil && raw.FoundedOn.Year > 0 {
		year := raw.FoundedOn.Year
		org.FoundedYear = &year
	}

	return org, nil
}

// localizedName resolves the preferred-locale translation, e.g. the
// "en_US" entry for a preferred locale of en/US.
func localizedName(name *upstream.LocalizedString) *string {
	if name == nil || name.PreferredLocale == nil {
		return nil
	}
	key := name.PreferredLocale.Language + "_" + name.PreferredLocale.Country
	return stringToPtr(name.Localized[key])
}

func formatHeadquarters(hq *upstream.Headquarters) *string {
	if hq == nil {
		return nil
	}
	var parts []string
	for _, p := range []string{hq.City, hq.GeographicArea, hq.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return stringToPtr(strings.Join(parts, ", "))
}

func formatEmployeeCountRange(r *upstream.IntegerRange) *string {
	switch {
	case r == nil:
		return nil
	case r.End > 0:
		return stringToPtr(fmt.Sprintf("%d-%d", r.Start, r.End))
	case r.Start > 0:
		return stringToPtr(fmt.Sprintf("%d+", r.Start))
	default:
		return nil
	}
}

// epochMillisToTime converts an upstream epoch-millisecond stamp to a UTC
// instant. Missing stamps stay null rather than defaulting to now.
func epochMillisToTime(millis *int64) *time.Time {
	if millis == nil {
		return nil
	}
	t := time.UnixMilli(*millis).UTC()
	return &t
}

func stringToPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
