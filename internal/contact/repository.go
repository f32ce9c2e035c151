package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const contactColumns = `id, user_id, first_name, last_name, email, phone_number, birthday, additional_data, created_at, updated_at`

// Repository is the PostgreSQL contact store. Every query is scoped to the
// owning user, so a contact id belonging to someone else behaves as missing.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, userID int64, page Page) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	return scanContacts(rows)
}

func (r *Repository) Get(ctx context.Context, userID, id int64) (Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("query contact: %w", err)
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, userID int64, in Input) (Contact, error) {
	now := time.Now().UTC()
	c := Contact{
		UserID:         userID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		PhoneNumber:    in.PhoneNumber,
		Birthday:       in.Birthday,
		AdditionalData: in.AdditionalData,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (user_id, first_name, last_name, email, phone_number, birthday, additional_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`, userID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Birthday.Time, nullString(c.AdditionalData), now).Scan(&c.ID)
	if err != nil {
		return Contact{}, fmt.Errorf("insert contact: %w", err)
	}

	return c, nil
}

func (r *Repository) Update(ctx context.Context, userID, id int64, in Input) (Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE contacts
		SET first_name = $3,
			last_name = $4,
			email = $5,
			phone_number = $6,
			birthday = $7,
			additional_data = $8,
			updated_at = $9
		WHERE id = $1 AND user_id = $2
		RETURNING `+contactColumns,
		id, userID, in.FirstName, in.LastName, in.Email, in.PhoneNumber, in.Birthday.Time, nullString(in.AdditionalData), time.Now().UTC())

	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) Search(ctx context.Context, userID int64, filter SearchFilter) ([]Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`
	args := []any{userID}

	for _, f := range []struct {
		column string
		value  string
	}{
		{"first_name", filter.FirstName},
		{"last_name", filter.LastName},
		{"email", filter.Email},
	} {
		if f.value == "" {
			continue
		}
		args = append(args, "%"+escapeLike(f.value)+"%")
		query += " AND " + f.column + " ILIKE $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return scanContacts(rows)
}

// UpcomingBirthdays returns contacts whose birthday falls between from and
// from+days, inclusive, ignoring the year. The window may wrap past
// December 31st.
func (r *Repository) UpcomingBirthdays(ctx context.Context, userID int64, from time.Time, days int) ([]Contact, error) {
	start := from.Format("01-02")
	end := from.AddDate(0, 0, days).Format("01-02")

	window := `to_char(birthday, 'MM-DD') BETWEEN $2 AND $3`
	if end < start {
		window = `(to_char(birthday, 'MM-DD') >= $2 OR to_char(birthday, 'MM-DD') <= $3)`
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1 AND `+window+`
		ORDER BY to_char(birthday, 'MM-DD') < $2, to_char(birthday, 'MM-DD'), id
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query upcoming birthdays: %w", err)
	}
	return scanContacts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	var additional sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&c.Birthday.Time, &additional, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contact{}, err
	}
	if additional.Valid {
		c.AdditionalData = &additional.String
	}
	return c, nil
}

func scanContacts(rows *sql.Rows) ([]Contact, error) {
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	return contacts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
