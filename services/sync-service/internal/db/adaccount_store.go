package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmsapps/adsync/services/sync-service/internal/models"
)

const adAccountColumns = `ad_account_id, user_id, name, status, type, test, currency,
	total_budget_amount, total_budget_currency_code, total_budget_ends_at,
	serving_statuses, reference, version_tag,
	notified_on_creative_rejection, notified_on_creative_approval,
	notified_on_new_features_enabled, notified_on_end_of_campaign,
	created_at, created_actor, last_modified_at, last_modified_actor`

// AdAccountStore persists ad account records keyed by their upstream ID.
type AdAccountStore struct {
	pool *pgxpool.Pool
}

func NewAdAccountStore(pool *pgxpool.Pool) *AdAccountStore {
	return &AdAccountStore{pool: pool}
}

// FindByKey returns the account with the given upstream ID, or ErrNotFound.
func (s *AdAccountStore) FindByKey(ctx context.Context, key string) (models.AdAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM ad_accounts WHERE ad_account_id = $1`, adAccountColumns)

	acct, err := scanAdAccount(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdAccount{}, ErrNotFound
		}
		return models.AdAccount{}, &PersistenceError{Op: "ad_accounts.find", Cause: err}
	}
	return acct, nil
}

// FindManyByKeys returns every account whose upstream ID is in keys, in one
// query. Missing keys are simply absent from the result.
func (s *AdAccountStore) FindManyByKeys(ctx context.Context, keys []string) ([]models.AdAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM ad_accounts WHERE ad_account_id = ANY($1)`, adAccountColumns)

	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, &PersistenceError{Op: "ad_accounts.find_many", Cause: err}
	}
	defer rows.Close()

	return collectAdAccounts(rows)
}

// CreateMany inserts the given accounts in a single batched round trip.
func (s *AdAccountStore) CreateMany(ctx context.Context, records []models.AdAccount) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO ad_accounts (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		adAccountColumns)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			rec.AdAccountID, rec.UserID, rec.Name, rec.Status, rec.Type, rec.Test, rec.Currency,
			rec.TotalBudgetAmount, rec.TotalBudgetCurrencyCode, rec.TotalBudgetEndsAt,
			rec.ServingStatuses, rec.Reference, rec.VersionTag,
			rec.NotifiedOnCreativeRejection, rec.NotifiedOnCreativeApproval,
			rec.NotifiedOnNewFeaturesEnabled, rec.NotifiedOnEndOfCampaign,
			rec.CreatedAt, rec.CreatedActor, rec.LastModifiedAt, rec.LastModifiedActor,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var created int64
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return created, &PersistenceError{Op: "ad_accounts.create_many", Cause: err}
		}
		created += tag.RowsAffected()
	}

	return created, nil
}

// Update rewrites the mutable attributes of an existing account. The natural
// key, ownership and creation stamps are immutable once set.
func (s *AdAccountStore) Update(ctx context.Context, key string, rec models.AdAccount) (models.AdAccount, error) {
	query := fmt.Sprintf(`UPDATE ad_accounts SET
			name = $2, status = $3, type = $4, test = $5, currency = $6,
			total_budget_amount = $7, total_budget_currency_code = $8, total_budget_ends_at = $9,
			serving_statuses = $10, reference = $11, version_tag = $12,
			notified_on_creative_rejection = $13, notified_on_creative_approval = $14,
			notified_on_new_features_enabled = $15, notified_on_end_of_campaign = $16,
			last_modified_at = $17, last_modified_actor = $18
		WHERE ad_account_id = $1
		RETURNING %s`, adAccountColumns)

	updated, err := scanAdAccount(s.pool.QueryRow(ctx, query,
		key, rec.Name, rec.Status, rec.Type, rec.Test, rec.Currency,
		rec.TotalBudgetAmount, rec.TotalBudgetCurrencyCode, rec.TotalBudgetEndsAt,
		rec.ServingStatuses, rec.Reference, rec.VersionTag,
		rec.NotifiedOnCreativeRejection, rec.NotifiedOnCreativeApproval,
		rec.NotifiedOnNewFeaturesEnabled, rec.NotifiedOnEndOfCampaign,
		rec.LastModifiedAt, rec.LastModifiedActor,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdAccount{}, ErrNotFound
		}
		return models.AdAccount{}, &PersistenceError{Op: "ad_accounts.update", Cause: err}
	}
	return updated, nil
}

// Upsert inserts or, on a natural-key conflict, rewrites the mutable
// attributes. Backstop for callers outside the reconcile path.
func (s *AdAccountStore) Upsert(ctx context.Context, rec models.AdAccount) error {
	query := fmt.Sprintf(`INSERT INTO ad_accounts (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (ad_account_id) DO UPDATE SET
			name = EXCLUDED.name, status = EXCLUDED.status, type = EXCLUDED.type,
			test = EXCLUDED.test, currency = EXCLUDED.currency,
			total_budget_amount = EXCLUDED.total_budget_amount,
			total_budget_currency_code = EXCLUDED.total_budget_currency_code,
			total_budget_ends_at = EXCLUDED.total_budget_ends_at,
			serving_statuses = EXCLUDED.serving_statuses,
			reference = EXCLUDED.reference, version_tag = EXCLUDED.version_tag,
			notified_on_creative_rejection = EXCLUDED.notified_on_creative_rejection,
			notified_on_creative_approval = EXCLUDED.notified_on_creative_approval,
			notified_on_new_features_enabled = EXCLUDED.notified_on_new_features_enabled,
			notified_on_end_of_campaign = EXCLUDED.notified_on_end_of_campaign,
			last_modified_at = EXCLUDED.last_modified_at,
			last_modified_actor = EXCLUDED.last_modified_actor`, adAccountColumns)

	_, err := s.pool.Exec(ctx, query,
		rec.AdAccountID, rec.UserID, rec.Name, rec.Status, rec.Type, rec.Test, rec.Currency,
		rec.TotalBudgetAmount, rec.TotalBudgetCurrencyCode, rec.TotalBudgetEndsAt,
		rec.ServingStatuses, rec.Reference, rec.VersionTag,
		rec.NotifiedOnCreativeRejection, rec.NotifiedOnCreativeApproval,
		rec.NotifiedOnNewFeaturesEnabled, rec.NotifiedOnEndOfCampaign,
		rec.CreatedAt, rec.CreatedActor, rec.LastModifiedAt, rec.LastModifiedActor,
	)
	if err != nil {
		return &PersistenceError{Op: "ad_accounts.upsert", Cause: err}
	}
	return nil
}

// ListByUser returns a user's accounts, optionally restricted to the given
// statuses. Unknown status values simply match nothing.
func (s *AdAccountStore) ListByUser(ctx context.Context, userID uuid.UUID, statuses []string) ([]models.AdAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM ad_accounts WHERE user_id = $1`, adAccountColumns)
	args := []interface{}{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, statuses)
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "ad_accounts.list", Cause: err}
	}
	defer rows.Close()

	return collectAdAccounts(rows)
}

// EarliestCreatedAt returns the creation stamp of the user's oldest account,
// or nil when the user has none.
func (s *AdAccountStore) EarliestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var earliest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(created_at) FROM ad_accounts WHERE user_id = $1`,
		userID,
	).Scan(&earliest)
	if err != nil {
		return nil, &PersistenceError{Op: "ad_accounts.earliest_created_at", Cause: err}
	}
	return earliest, nil
}

// ListOrganizationIDs returns the distinct organization IDs a user's
// accounts reference, URN prefix already stripped.
func (s *AdAccountStore) ListOrganizationIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT reference FROM ad_accounts WHERE user_id = $1 AND reference LIKE $2`,
		userID, models.OrganizationURNPrefix+"%",
	)
	if err != nil {
		return nil, &PersistenceError{Op: "ad_accounts.list_organization_ids", Cause: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, &PersistenceError{Op: "ad_accounts.list_organization_ids", Cause: err}
		}
		ids = append(ids, strings.TrimPrefix(ref, models.OrganizationURNPrefix))
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "ad_accounts.list_organization_ids", Cause: err}
	}
	return ids, nil
}

func scanAdAccount(row pgx.Row) (models.AdAccount, error) {
	var acct models.AdAccount
	err := row.Scan(
		&acct.AdAccountID, &acct.UserID, &acct.Name, &acct.Status, &acct.Type, &acct.Test, &acct.Currency,
		&acct.TotalBudgetAmount, &acct.TotalBudgetCurrencyCode, &acct.TotalBudgetEndsAt,
		&acct.ServingStatuses, &acct.Reference, &acct.VersionTag,
		&acct.NotifiedOnCreativeRejection, &acct.NotifiedOnCreativeApproval,
		&acct.NotifiedOnNewFeaturesEnabled, &acct.NotifiedOnEndOfCampaign,
		&acct.CreatedAt, &acct.CreatedActor, &acct.LastModifiedAt, &acct.LastModifiedActor,
	)
	return acct, err
}

func collectAdAccounts(rows pgx.Rows) ([]models.AdAccount, error) {
	var accounts []models.AdAccount
	for rows.Next() {
		acct, err := scanAdAccount(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "ad_accounts.scan", Cause: err}
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "ad_accounts.scan", Cause: err}
	}
	return accounts, nil
}
