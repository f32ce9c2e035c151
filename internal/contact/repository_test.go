package contact_test

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contacts-api/internal/contact"
)

var contactColumns = []string{"id", "user_id", "first_name", "last_name", "email", "phone_number", "birthday", "additional_data", "created_at", "updated_at"}

func newMockRepository(t *testing.T) (*contact.Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return contact.NewRepository(db), mock
}

func contactRow(rows *sqlmock.Rows, id, userID int64, first string, birthday time.Time, extra any) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(id, userID, first, "Doe", first+"@x.com", "+380000000", birthday, extra, now, now)
}

func TestRepository_List(t *testing.T) {
	repo, mock := newMockRepository(t)
	birthday := time.Date(1990, time.May, 4, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(contactColumns)
	contactRow(rows, 1, 7, "jane", birthday, nil)
	contactRow(rows, 2, 7, "john", birthday, "met at work")

	mock.ExpectQuery(`SELECT (.+) FROM contacts WHERE user_id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(7), 10, 20).
		WillReturnRows(rows)

	contacts, err := repo.List(t.Context(), 7, contact.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "jane", contacts[0].FirstName)
	assert.Nil(t, contacts[0].AdditionalData)
	require.NotNil(t, contacts[1].AdditionalData)
	assert.Equal(t, "met at work", *contacts[1].AdditionalData)
	assert.True(t, contacts[0].Birthday.Equal(birthday))
}

func TestRepository_List_Empty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM contacts`).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	contacts, err := repo.List(t.Context(), 7, contact.Page{Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

func TestRepository_Get_ScopedToOwner(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM contacts WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(5), int64(8)).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.Get(t.Context(), 8, 5)
	assert.ErrorIs(t, err, contact.ErrNotFound)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)
	note := "college friend"
	birthday := contact.NewDate(1991, time.March, 2)

	mock.ExpectQuery(`INSERT INTO contacts (.+) RETURNING id`).
		WithArgs(int64(7), "Jane", "Doe", "jane@x.com", "+380000000", birthday.Time, note, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	c, err := repo.Create(t.Context(), 7, contact.Input{
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane@x.com",
		PhoneNumber:    "+380000000",
		Birthday:       birthday,
		AdditionalData: &note,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ID)
	assert.Equal(t, int64(7), c.UserID)
}

func TestRepository_Update_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`UPDATE contacts SET (.+) WHERE id = \$1 AND user_id = \$2 RETURNING`).
		WithArgs(int64(5), int64(7), "Jane", "Doe", "jane@x.com", "+380000000", sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.Update(t.Context(), 7, 5, contact.Input{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@x.com",
		PhoneNumber: "+380000000",
		Birthday:    contact.NewDate(1991, time.March, 2),
	})
	assert.ErrorIs(t, err, contact.ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM contacts WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM contacts`).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(t.Context(), 7, 5))
	assert.ErrorIs(t, repo.Delete(t.Context(), 7, 5), contact.ErrNotFound)
}

func TestRepository_Delete_Error(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM contacts`).WillReturnError(errors.New("conn closed"))

	err := repo.Delete(t.Context(), 7, 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, contact.ErrNotFound)
}

func TestRepository_Search(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM contacts WHERE user_id = \$1 AND first_name ILIKE \$2 AND email ILIKE \$3 ORDER BY id`).
		WithArgs(int64(7), "%ja%", `%100\%%`).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	contacts, err := repo.Search(t.Context(), 7, contact.SearchFilter{FirstName: "ja", Email: "100%"})
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestRepository_Search_NoFilters(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM contacts WHERE user_id = \$1 ORDER BY id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.Search(t.Context(), 7, contact.SearchFilter{})
	require.NoError(t, err)
}

func TestRepository_UpcomingBirthdays(t *testing.T) {
	repo, mock := newMockRepository(t)
	from := time.Date(2026, time.May, 10, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE user_id = \$1 AND to_char\(birthday, 'MM-DD'\) BETWEEN \$2 AND \$3`).
		WithArgs(int64(7), "05-10", "05-17").
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.UpcomingBirthdays(t.Context(), 7, from, contact.UpcomingDays)
	require.NoError(t, err)
}

func TestRepository_UpcomingBirthdays_WrapsYearEnd(t *testing.T) {
	repo, mock := newMockRepository(t)
	from := time.Date(2026, time.December, 28, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`\(to_char\(birthday, 'MM-DD'\) >= \$2 OR to_char\(birthday, 'MM-DD'\) <= \$3\)`).
		WithArgs(int64(7), "12-28", "01-04").
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.UpcomingBirthdays(t.Context(), 7, from, contact.UpcomingDays)
	require.NoError(t, err)
}
