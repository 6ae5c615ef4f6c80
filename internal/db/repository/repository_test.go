package repository

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/db"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "pic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database.DB
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	user := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         models.RoleManager,
		FactoryID:    "F-1",
		Enabled:      true,
	}
	require.NoError(t, repo.Create(user))
	assert.NotZero(t, user.ID)

	got, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, models.RoleManager, got.Role)
	assert.Equal(t, "F-1", got.FactoryID)
	assert.True(t, got.Enabled)

	got, err = repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, repo.UpdatePassword(user.ID, "new-hash"))
	got, err = repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.NoError(t, repo.SetEnabled(user.ID, false))
	got, err = repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	_, err = repo.GetByUsername("bob")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, apperror.Is(repo.UpdatePassword(999, "x"), apperror.KindNotFound))
}

func TestUserRepositoryDuplicates(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	require.NoError(t, repo.Create(&models.User{Username: "alice", Email: "a@example.com", PasswordHash: "h", Role: models.RoleUser}))
	err := repo.Create(&models.User{Username: "alice", Email: "b@example.com", PasswordHash: "h", Role: models.RoleUser})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	err = repo.Create(&models.User{Username: "bob", Email: "a@example.com", PasswordHash: "h", Role: models.RoleUser})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	users, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCertRepositoryRoundTrip(t *testing.T) {
	repo := NewCertRepository(openTestDB(t))

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.AddDate(1, 0, 0)
	cert := &models.Certificate{
		ID:             "0b7d4c84-7a8e-4c1a-9d1d-4d8c7e0f1a2b",
		CertificateID:  "CERT-ABC-123456",
		OwnerID:        "42",
		Name:           "Course A",
		Type:           models.TypeCompletion,
		Status:         models.StatusDraft,
		RecipientEmail: "bob@example.com",
		ExpiresAt:      &expires,
		Metadata:       map[string]interface{}{"hours": float64(12), "track": "go"},
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, repo.Put(cert))

	got, err := repo.GetByCertificateID("CERT-ABC-123456")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cert.ID, got.ID)
	assert.Equal(t, cert.Metadata, got.Metadata)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expires))
	assert.Nil(t, got.IssuedAt)
	assert.True(t, got.CreatedAt.Equal(created))

	issuedAt := created.Add(time.Hour)
	got.Status = models.StatusIssued
	got.IssuedAt = &issuedAt
	got.UpdatedAt = issuedAt
	require.NoError(t, repo.Put(got))

	again, err := repo.Get(cert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssued, again.Status)
	require.NotNil(t, again.IssuedAt)
	assert.True(t, again.IssuedAt.Equal(issuedAt))

	all, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	deleted, err := repo.Delete(cert.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	missing, err := repo.Get(cert.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err = repo.Delete(cert.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAuditRepository(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t), nil)

	repo.Log(models.EventLoginFailed, map[string]interface{}{"username": "alice"})
	repo.Log(models.EventLoginSucceeded, map[string]interface{}{"username": "bob"})
	repo.Log(models.EventLoginFailed, map[string]interface{}{"username": "carol"})

	logs, err := repo.List(models.EventLoginFailed, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.JSONEq(t, `{"username":"carol"}`, logs[0].Details)
	assert.JSONEq(t, `{"username":"alice"}`, logs[1].Details)

	all, err := repo.List("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := repo.DeleteOld(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
