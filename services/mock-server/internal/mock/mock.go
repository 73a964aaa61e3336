package mock

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lmsapps/adsync/internal/models"
)

const PageSize = 100

var (
	accountNames = []string{"Brand Awareness", "Lead Gen", "Product Launch", "Retargeting", "Talent", "Events", "Webinars", "Holiday Push"}
	statuses     = []string{"ACTIVE", "ACTIVE", "ACTIVE", "DRAFT", "CANCELED", "PENDING_DELETION", "REMOVED"}
	types        = []string{"BUSINESS", "BUSINESS", "ENTERPRISE"}
	currencies   = []string{"USD", "EUR", "GBP", "CAD"}
	servingSets  = [][]string{
		{"RUNNABLE"},
		{"RUNNABLE", "BILLING_HOLD"},
		{"STOPPED"},
		{},
	}

	orgNames      = []string{"Acme Corp", "Globex", "Initech", "Umbrella", "Stark Industries", "Wayne Enterprises", "Hooli", "Pied Piper"}
	orgIndustries = [][]string{{"Software"}, {"Marketing", "Advertising"}, {"Finance"}, {"Manufacturing"}}

	// Static account list - maintained across calls
	accountList    []models.AdAccountElement
	accountMutex   sync.RWMutex
	accountCounter int

	// Pending injected failures - each upstream call consumes one
	failureCount int
	failureMutex sync.Mutex
)

func init() {
	// Start with 250 accounts (3 pages at the default page size)
	accountList = make([]models.AdAccountElement, 0, 250)
	for i := 0; i < 250; i++ {
		accountList = append(accountList, generateAccount(i))
	}
	accountCounter = 250
}

func generateAccount(index int) models.AdAccountElement {
	id := 500000000 + index
	orgID := organizationIDForIndex(index)
	created := time.Now().Add(-time.Duration(rand.Intn(730)) * 24 * time.Hour)
	modified := created.Add(time.Duration(rand.Intn(240)) * time.Hour)

	acct := models.AdAccountElement{
		ID:              json.Number(strconv.Itoa(id)),
		Name:            fmt.Sprintf("%s %d", accountNames[index%len(accountNames)], index),
		Status:          statuses[index%len(statuses)],
		Type:            types[index%len(types)],
		Test:            index%17 == 0,
		Currency:        currencies[index%len(currencies)],
		Reference:       "urn:li:organization:" + orgID,
		ServingStatuses: servingSets[index%len(servingSets)],
		ChangeAuditStamps: &models.ChangeAuditStamps{
			Created:      &models.AuditStamp{Time: created.UnixMilli(), Actor: "urn:li:system:0"},
			LastModified: &models.AuditStamp{Time: modified.UnixMilli(), Actor: "urn:li:system:0"},
		},
	}

	// Leave the budget absent on some accounts, as upstream does
	if index%3 != 0 {
		acct.TotalBudget = &models.Money{
			Amount:       fmt.Sprintf("%d.%02d", 500+rand.Intn(50000), rand.Intn(100)),
			CurrencyCode: acct.Currency,
		}
		endsAt := time.Now().Add(time.Duration(30+rand.Intn(180)) * 24 * time.Hour).UnixMilli()
		acct.TotalBudgetEndsAt = &endsAt
	}
	if index%5 != 0 {
		acct.Version = &models.Version{VersionTag: strconv.Itoa(1 + rand.Intn(40))}
	}

	return acct
}

func organizationIDForIndex(index int) string {
	return strconv.Itoa(70000000 + index%len(orgNames))
}

// GetAdAccountsPage returns one page of the account collection. The token is
// an opaque page index; an empty token means the first page. The returned
// metadata carries the next token, or none on the last page.
func GetAdAccountsPage(pageToken string) (models.AdAccountsPage, error) {
	accountMutex.RLock()
	defer accountMutex.RUnlock()

	page := 0
	if pageToken != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(pageToken, "page-"))
		if err != nil || n < 1 {
			return models.AdAccountsPage{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		page = n
	}

	start := page * PageSize
	if start >= len(accountList) {
		return models.AdAccountsPage{Elements: []models.AdAccountElement{}}, nil
	}
	end := start + PageSize
	if end > len(accountList) {
		end = len(accountList)
	}

	resp := models.AdAccountsPage{
		Elements: append([]models.AdAccountElement{}, accountList[start:end]...),
	}
	if end < len(accountList) {
		resp.Metadata.NextPageToken = fmt.Sprintf("page-%d", page+1)
	}

	return resp, nil
}

// AddAccounts grows the account list, shifting page boundaries.
func AddAccounts(numAccounts int) (int, error) {
	if numAccounts < 1 {
		return 0, fmt.Errorf("numAccounts must be at least 1")
	}

	accountMutex.Lock()
	defer accountMutex.Unlock()

	for i := 0; i < numAccounts; i++ {
		accountList = append(accountList, generateAccount(accountCounter))
		accountCounter++
	}

	return len(accountList), nil
}

// GetOrganizations returns the organizations for the given IDs, keyed by ID.
// Unknown IDs are silently absent, matching upstream behavior.
func GetOrganizations(ids []string) map[string]models.OrganizationResult {
	results := make(map[string]models.OrganizationResult, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil || n < 70000000 || n >= 70000000+len(orgNames) {
			continue
		}
		index := n - 70000000
		name := orgNames[index]

		results[id] = models.OrganizationResult{
			Name: &models.LocalizedString{
				Localized:       map[string]string{"en_US": name},
				PreferredLocale: &models.Locale{Language: "en", Country: "US"},
			},
			LocalizedName:    name,
			LocalizedWebsite: fmt.Sprintf("https://www.%s.example.com", strings.ToLower(strings.ReplaceAll(name, " ", ""))),
			Industries:       orgIndustries[index%len(orgIndustries)],
			FoundedOn:        &models.FoundedOn{Year: 1980 + index*4},
			Headquarters: &models.Headquarters{
				City:           "San Francisco",
				GeographicArea: "CA",
				Country:        "US",
			},
			EmployeeCountRange:      &models.IntegerRange{Start: 51, End: 200},
			Specialties:             []string{"B2B", "SaaS"},
			PrimaryOrganizationType: "NONE",
		}
	}
	return results
}

// InjectFailures arms the next count upstream calls to fail with HTTP 500.
func InjectFailures(count int) {
	failureMutex.Lock()
	defer failureMutex.Unlock()
	failureCount = count
}

// ConsumeFailure reports whether the current call should fail, decrementing
// the armed count.
func ConsumeFailure() bool {
	failureMutex.Lock()
	defer failureMutex.Unlock()
	if failureCount > 0 {
		failureCount--
		return true
	}
	return false
}
