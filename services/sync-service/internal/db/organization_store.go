package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmsapps/adsync/services/sync-service/internal/models"
)

const organizationColumns = `organization_id, name, localized_name, industries, founded_year,
	headquarters, website_url, employee_count_range, specialties,
	primary_organization_type, created_at, last_modified_at`

// OrganizationStore persists organization records keyed by their upstream ID.
// Organizations carry no owner linkage: ad accounts resolve to them at
// display time through their reference URN.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pool: pool}
}

// FindByKey returns the organization with the given upstream ID, or ErrNotFound.
func (s *OrganizationStore) FindByKey(ctx context.Context, key string) (models.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE organization_id = $1`, organizationColumns)

	org, err := scanOrganization(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Organization{}, ErrNotFound
		}
		return models.Organization{}, &PersistenceError{Op: "organizations.find", Cause: err}
	}
	return org, nil
}

// FindManyByKeys returns every organization whose upstream ID is in keys.
func (s *OrganizationStore) FindManyByKeys(ctx context.Context, keys []string) ([]models.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE organization_id = ANY($1)`, organizationColumns)

	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, &PersistenceError{Op: "organizations.find_many", Cause: err}
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "organizations.scan", Cause: err}
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "organizations.scan", Cause: err}
	}
	return orgs, nil
}

// CreateMany inserts the given organizations in a single batched round trip.
func (s *OrganizationStore) CreateMany(ctx context.Context, records []models.Organization) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO organizations (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, organizationColumns)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			rec.OrganizationID, rec.Name, rec.LocalizedName, rec.Industries, rec.FoundedYear,
			rec.Headquarters, rec.WebsiteURL, rec.EmployeeCountRange, rec.Specialties,
			rec.PrimaryOrganizationType, rec.CreatedAt, rec.LastModifiedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var created int64
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return created, &PersistenceError{Op: "organizations.create_many", Cause: err}
		}
		created += tag.RowsAffected()
	}

	return created, nil
}

// Update rewrites the mutable attributes of an existing organization. The
// natural key and creation stamp are immutable once set.
func (s *OrganizationStore) Update(ctx context.Context, key string, rec models.Organization) (models.Organization, error) {
	query := fmt.Sprintf(`UPDATE organizations SET
			name = $2, localized_name = $3, industries = $4, founded_year = $5,
			headquarters = $6, website_url = $7, employee_count_range = $8,
			specialties = $9, primary_organization_type = $10, last_modified_at = $11
		WHERE organization_id = $1
		RETURNING %s`, organizationColumns)

	updated, err := scanOrganization(s.pool.QueryRow(ctx, query,
		key, rec.Name, rec.LocalizedName, rec.Industries, rec.FoundedYear,
		rec.Headquarters, rec.WebsiteURL, rec.EmployeeCountRange,
		rec.Specialties, rec.PrimaryOrganizationType, rec.LastModifiedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Organization{}, ErrNotFound
		}
		return models.Organization{}, &PersistenceError{Op: "organizations.update", Cause: err}
	}
	return updated, nil
}

// Upsert inserts or, on a natural-key conflict, rewrites the mutable
// attributes.
func (s *OrganizationStore) Upsert(ctx context.Context, rec models.Organization) error {
	query := fmt.Sprintf(`INSERT INTO organizations (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (organization_id) DO UPDATE SET
			name = EXCLUDED.name, localized_name = EXCLUDED.localized_name,
			industries = EXCLUDED.industries, founded_year = EXCLUDED.founded_year,
			headquarters = EXCLUDED.headquarters, website_url = EXCLUDED.website_url,
			employee_count_range = EXCLUDED.employee_count_range,
			specialties = EXCLUDED.specialties,
			primary_organization_type = EXCLUDED.primary_organization_type,
			last_modified_at = EXCLUDED.last_modified_at`, organizationColumns)

	_, err := s.pool.Exec(ctx, query,
		rec.OrganizationID, rec.Name, rec.LocalizedName, rec.Industries, rec.FoundedYear,
		rec.Headquarters, rec.WebsiteURL, rec.EmployeeCountRange, rec.Specialties,
		rec.PrimaryOrganizationType, rec.CreatedAt, rec.LastModifiedAt,
	)
	if err != nil {
		return &PersistenceError{Op: "organizations.upsert", Cause: err}
	}
	return nil
}

func scanOrganization(row pgx.Row) (models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.OrganizationID, &org.Name, &org.LocalizedName, &org.Industries, &org.FoundedYear,
		&org.Headquarters, &org.WebsiteURL, &org.EmployeeCountRange, &org.Specialties,
		&org.PrimaryOrganizationType, &org.CreatedAt, &org.LastModifiedAt,
	)
	return org, err
}
