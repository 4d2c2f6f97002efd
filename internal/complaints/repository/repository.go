package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
)

var ErrNotFound = errors.New("complaint not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const complaintColumns = `id, status, company_name, complaint_text, customer_name, customer_email, customer_phone,
	category, product, severity, summary, missing_fields, extracted_fields,
	initial_confidence, confidence, dialogue_complete, call_retries, resolution, reference_number, created_at, updated_at`

type CreateComplaintParams struct {
	CompanyName   string
	ComplaintText string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

func (r *Repository) Create(ctx context.Context, params CreateComplaintParams) (domain.Complaint, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO complaints (status, company_name, complaint_text, customer_name, customer_email, customer_phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+complaintColumns+`
	`, domain.StatusIntake, params.CompanyName, params.ComplaintText, params.CustomerName, params.CustomerEmail, params.CustomerPhone)

	return scanComplaint(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints WHERE id = $1
	`, id)

	c, err := scanComplaint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Complaint{}, ErrNotFound
	}
	return c, err
}

type ListParams struct {
	Status  string
	Company string
	Limit   int
	Offset  int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Complaint, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if params.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}
	if params.Company != "" {
		where = append(where, fmt.Sprintf("company_name ILIKE $%d", argIdx))
		args = append(args, "%"+params.Company+"%")
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM complaints WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT `+complaintColumns+`
		FROM complaints
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	complaints := make([]domain.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, err
		}
		complaints = append(complaints, c)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return complaints, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE complaints SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateClassification stores the intake classifier's verdict and resets the
// complaint into the dialogue phase.
func (r *Repository) UpdateClassification(ctx context.Context, id uuid.UUID, c domain.Classification, initialConfidence float64, missingFields []string) error {
	if missingFields == nil {
		missingFields = []string{}
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE complaints
		SET category = $2, product = $3, severity = $4, summary = $5,
			initial_confidence = $6, confidence = $6, missing_fields = $7,
			status = $8, updated_at = now()
		WHERE id = $1
	`, id, c.Category, c.Product, c.Severity, c.Summary, initialConfidence, missingFields, domain.StatusDialogue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResolution records the outcome a call (or a human) reached for the complaint.
func (r *Repository) SetResolution(ctx context.Context, id uuid.UUID, resolution, referenceNumber string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE complaints SET resolution = $2, reference_number = $3, updated_at = now() WHERE id = $1
	`, id, resolution, referenceNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CallRetryCount reads the persisted dial-retry counter. The counter lives on
// the complaint row so it survives worker restarts between attempts.
func (r *Repository) CallRetryCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT call_retries FROM complaints WHERE id = $1`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return count, err
}

// IncrementCallRetries bumps the dial-retry counter and returns the new value.
func (r *Repository) IncrementCallRetries(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE complaints SET call_retries = call_retries + 1, updated_at = now()
		WHERE id = $1
		RETURNING call_retries
	`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return count, err
}

// complaintRowScanner is satisfied by pgx.Rows and pgx.Row so scanComplaint can
// be shared between single-row and multi-row queries.
type complaintRowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(s complaintRowScanner) (domain.Complaint, error) {
	var (
		c            domain.Complaint
		phone        *string
		rawFields    []byte
		missing      []string
		statusString string
	)
	if err := s.Scan(
		&c.ID, &statusString, &c.CompanyName, &c.ComplaintText, &c.Customer.Name, &c.Customer.Email, &phone,
		&c.Classification.Category, &c.Classification.Product, &c.Classification.Severity, &c.Classification.Summary,
		&missing, &rawFields,
		&c.InitialConfidence, &c.Confidence, &c.DialogueComplete, &c.CallRetries, &c.Resolution, &c.ReferenceNumber,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.Complaint{}, err
	}

	c.Status = domain.Status(statusString)
	c.MissingFields = missing
	if phone != nil {
		c.Customer.Phone = *phone
	}
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &c.ExtractedFields); err != nil {
			return domain.Complaint{}, fmt.Errorf("decode extracted_fields: %w", err)
		}
	}
	if c.ExtractedFields == nil {
		c.ExtractedFields = map[string]string{}
	}

	return c, nil
}
