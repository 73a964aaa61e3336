package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lmsapps/adsync/services/sync-service/internal/db"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup database and create a test user",
	Long:  "Creates database tables and inserts a test user record for development/testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		pool, err := db.Connect(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		// Run migrations
		fmt.Println("Running migrations...")
		migrationSQL := `
			-- Dashboard users. Auth and session issuance live elsewhere.
			CREATE TABLE IF NOT EXISTS users (
			    id UUID PRIMARY KEY,
			    email VARCHAR(255) NOT NULL UNIQUE,
			    email_verified TIMESTAMP WITH TIME ZONE,
			    image TEXT,
			    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			-- Ad accounts, keyed by the upstream-issued account ID.
			-- Deletion cascades from the owning user; the sync engine itself
			-- never deletes rows.
			CREATE TABLE IF NOT EXISTS ad_accounts (
			    ad_account_id TEXT PRIMARY KEY,
			    user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			    name TEXT NOT NULL DEFAULT '',
			    status TEXT NOT NULL DEFAULT '',
			    type TEXT NOT NULL DEFAULT '',
			    test BOOLEAN NOT NULL DEFAULT FALSE,
			    currency TEXT NOT NULL DEFAULT '',
			    total_budget_amount NUMERIC,
			    total_budget_currency_code TEXT,
			    total_budget_ends_at TIMESTAMP WITH TIME ZONE,
			    serving_statuses TEXT[] NOT NULL DEFAULT '{}',
			    reference TEXT,
			    version_tag TEXT,
			    notified_on_creative_rejection BOOLEAN NOT NULL DEFAULT FALSE,
			    notified_on_creative_approval BOOLEAN NOT NULL DEFAULT FALSE,
			    notified_on_new_features_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			    notified_on_end_of_campaign BOOLEAN NOT NULL DEFAULT FALSE,
			    created_at TIMESTAMP WITH TIME ZONE,
			    created_actor TEXT,
			    last_modified_at TIMESTAMP WITH TIME ZONE,
			    last_modified_actor TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_ad_accounts_user_id ON ad_accounts(user_id);
			CREATE INDEX IF NOT EXISTS idx_ad_accounts_status ON ad_accounts(status);
			CREATE INDEX IF NOT EXISTS idx_ad_accounts_reference ON ad_accounts(reference);

			-- Organizations, keyed by the upstream-issued organization ID.
			-- No foreign key to ad accounts: the reference URN is resolved at
			-- display time because organizations are fetched independently.
			CREATE TABLE IF NOT EXISTS organizations (
			    organization_id TEXT PRIMARY KEY,
			    name TEXT,
			    localized_name TEXT,
			    industries TEXT[] NOT NULL DEFAULT '{}',
			    founded_year INTEGER,
			    headquarters TEXT,
			    website_url TEXT,
			    employee_count_range TEXT,
			    specialties TEXT[] NOT NULL DEFAULT '{}',
			    primary_organization_type TEXT,
			    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			    last_modified_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`

		if _, err := pool.Exec(ctx, migrationSQL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		// Insert test user
		fmt.Println("Inserting test user...")
		testUserID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
		insertUserSQL := `
			INSERT INTO users (id, email)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		`

		if _, err := pool.Exec(ctx, insertUserSQL, testUserID, "dev@example.com"); err != nil {
			return fmt.Errorf("failed to insert test user: %w", err)
		}

		fmt.Printf("✓ Database setup complete. Test user: %s (dev@example.com)\n", testUserID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
