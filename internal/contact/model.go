package contact

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const dateLayout = "2006-01-02"

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// UpcomingDays is how far ahead the birthday listing looks, today included.
	UpcomingDays = 7
)

var ErrNotFound = errors.New("contact not found")

// Date is a calendar day encoded as "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		d.Time = time.Time{}
		return nil
	}

	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return errors.New("birthday must be a date in YYYY-MM-DD format")
	}
	d.Time = parsed
	return nil
}

type Contact struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Birthday       Date      `json:"birthday"`
	AdditionalData *string   `json:"additional_data"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Input carries the writable fields of a contact, for both create and update.
type Input struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phone_number"`
	Birthday       Date    `json:"birthday"`
	AdditionalData *string `json:"additional_data"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.AdditionalData != nil {
		trimmed := strings.TrimSpace(*in.AdditionalData)
		if trimmed == "" {
			in.AdditionalData = nil
		} else {
			in.AdditionalData = &trimmed
		}
	}
}

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.LastName, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&in.PhoneNumber, validation.Required, validation.Length(3, 30)),
		validation.Field(&in.Birthday, validation.By(requireDate)),
		validation.Field(&in.AdditionalData, validation.Length(0, 500)),
	)
}

func requireDate(value any) error {
	date, _ := value.(Date)
	if date.IsZero() {
		return errors.New("cannot be blank")
	}
	if date.After(time.Now()) {
		return errors.New("must not be in the future")
	}
	return nil
}

// SearchFilter matches case-insensitive substrings. Empty fields match
// everything.
type SearchFilter struct {
	FirstName string
	LastName  string
	Email     string
}

type Page struct {
	Limit  int
	Offset int
}
