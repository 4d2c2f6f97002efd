package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCacheMiss is returned when the cache has no row for the company.
var ErrCacheMiss = errors.New("contact details not cached")

// Repository is the pgx-backed cache of resolved contact details, keyed by
// the normalized company name.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the cached details for a company, or ErrCacheMiss.
func (r *Repository) Get(ctx context.Context, companyName string) (*Details, error) {
	query := `
		SELECT company_name, phone_numbers, emails, ivr_menu, source, fetched_at
		FROM contact_details
		WHERE company_name = $1`

	var (
		d          Details
		rawPhones  []byte
		rawEmails  []byte
		rawIVRMenu []byte
	)
	err := r.pool.QueryRow(ctx, query, NormalizeCompanyName(companyName)).Scan(
		&d.CompanyName,
		&rawPhones,
		&rawEmails,
		&rawIVRMenu,
		&d.Source,
		&d.FetchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get contact details: %w", err)
	}

	if err := json.Unmarshal(rawPhones, &d.PhoneNumbers); err != nil {
		return nil, fmt.Errorf("failed to decode phone numbers: %w", err)
	}
	if err := json.Unmarshal(rawEmails, &d.Emails); err != nil {
		return nil, fmt.Errorf("failed to decode emails: %w", err)
	}
	if len(rawIVRMenu) > 0 {
		var menu IVRMenu
		if err := json.Unmarshal(rawIVRMenu, &menu); err != nil {
			return nil, fmt.Errorf("failed to decode ivr menu: %w", err)
		}
		d.IVRMenu = &menu
	}

	return &d, nil
}

// Put upserts the details under the normalized company name.
func (r *Repository) Put(ctx context.Context, d *Details) error {
	phones, err := json.Marshal(nonNilStrings(d.PhoneNumbers))
	if err != nil {
		return fmt.Errorf("failed to encode phone numbers: %w", err)
	}
	emails, err := json.Marshal(nonNilStrings(d.Emails))
	if err != nil {
		return fmt.Errorf("failed to encode emails: %w", err)
	}
	var menu []byte
	if d.IVRMenu != nil {
		menu, err = json.Marshal(d.IVRMenu)
		if err != nil {
			return fmt.Errorf("failed to encode ivr menu: %w", err)
		}
	}

	fetchedAt := d.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	query := `
		INSERT INTO contact_details (company_name, phone_numbers, emails, ivr_menu, source, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_name) DO UPDATE SET
			phone_numbers = EXCLUDED.phone_numbers,
			emails = EXCLUDED.emails,
			ivr_menu = EXCLUDED.ivr_menu,
			source = EXCLUDED.source,
			fetched_at = EXCLUDED.fetched_at`

	_, err = r.pool.Exec(ctx, query,
		NormalizeCompanyName(d.CompanyName),
		phones,
		emails,
		menu,
		d.Source,
		fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to cache contact details: %w", err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Cache = (*Repository)(nil)
