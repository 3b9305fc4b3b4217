package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbeam-io/shortlink/internal/domain"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func sampleRecord() *domain.UrlRecord {
	now := time.Now().UTC()
	return &domain.UrlRecord{
		ID:         "id1",
		Code:       "abc123",
		Original:   "https://example.com/path",
		Normalized: "https://example.com/path",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestStore_Insert_Success(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO urls").WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Insert(context.Background(), sampleRecord())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_CodeConflict(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO urls").WillReturnError(&pq.Error{
		Code:       "23505",
		Constraint: "urls_code_key",
	})

	err := s.Insert(context.Background(), sampleRecord())
	require.Error(t, err)
	appErr, ok := domain.As(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, appErr.Code)
	assert.Equal(t, "code", appErr.Details)
}

func TestStore_Insert_NormalizedConflict(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO urls").WillReturnError(&pq.Error{
		Code:       "23505",
		Constraint: "urls_normalized_key",
	})

	err := s.Insert(context.Background(), sampleRecord())
	require.Error(t, err)
	appErr, ok := domain.As(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, appErr.Code)
	assert.Equal(t, "normalized", appErr.Details)
}

func TestStore_FindByCode_Found(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "code", "original", "normalized", "hit_count", "custom_alias", "expires_at", "created_at", "updated_at", "creator_ip", "creator_user_agent", "metadata"}
	mock.ExpectQuery("SELECT (.+) FROM urls WHERE code").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"id1", "abc123", "https://example.com", "https://example.com", int64(3), nil, nil, now, now, nil, nil, []byte("{}"),
		))

	rec, err := s.FindByCode(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "abc123", rec.Code)
	assert.Equal(t, int64(3), rec.HitCount)
}

func TestStore_FindByCode_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	cols := []string{"id", "code", "original", "normalized", "hit_count", "custom_alias", "expires_at", "created_at", "updated_at", "creator_ip", "creator_user_agent", "metadata"}
	mock.ExpectQuery("SELECT (.+) FROM urls WHERE code").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	rec, err := s.FindByCode(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_Delete_Found(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("DELETE FROM urls WHERE code").
		WithArgs("abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := s.Delete(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestStore_Delete_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("DELETE FROM urls WHERE code").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := s.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_Stats(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(int64(10), int64(4)))

	stats, err := s.Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(4), stats.Expired)
	assert.Equal(t, int64(6), stats.Active)
}

func TestStore_GetExpired(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "code", "original", "normalized", "hit_count", "custom_alias", "expires_at", "created_at", "updated_at", "creator_ip", "creator_user_agent", "metadata"}
	mock.ExpectQuery("SELECT (.+) FROM urls").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"id1", "abc123", "https://example.com", "https://example.com", int64(0), nil, now, now, now, nil, nil, []byte("{}"),
		))

	records, err := s.GetExpired(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "abc123", records[0].Code)
}
