package certificate

import (
	"testing"
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, engine *Engine, clock *fakeClock, inputs ...models.CertificateInput) []*models.Certificate {
	t.Helper()
	out := make([]*models.Certificate, 0, len(inputs))
	for _, in := range inputs {
		cert, err := engine.Create(in)
		require.NoError(t, err)
		out = append(out, cert)
		clock.Advance(time.Minute)
	}
	return out
}

func names(items []*models.Certificate) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.Name)
	}
	return out
}

func TestListSortsNewestFirstAndPaginates(t *testing.T) {
	engine, clock := newTestEngine(t)
	seed(t, engine, clock,
		models.CertificateInput{OwnerID: "1", Name: "first", Type: models.TypeCompletion},
		models.CertificateInput{OwnerID: "1", Name: "second", Type: models.TypeCompletion},
		models.CertificateInput{OwnerID: "1", Name: "third", Type: models.TypeCompletion},
	)

	res, err := engine.List(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []string{"third", "second", "first"}, names(res.Items))

	res, err = engine.List(Filter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []string{"second"}, names(res.Items))

	res, err = engine.List(Filter{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Empty(t, res.Items)
}

func TestListFiltersCompose(t *testing.T) {
	engine, clock := newTestEngine(t)
	certs := seed(t, engine, clock,
		models.CertificateInput{OwnerID: "1", Name: "Go Basics", Type: models.TypeCompletion},
		models.CertificateInput{OwnerID: "2", Name: "Rust", Description: "advanced GO interop", Type: models.TypeAchievement},
		models.CertificateInput{OwnerID: "1", Name: "Hiking", RecipientName: "Gopher", Type: models.TypeParticipation},
	)
	_, err := engine.Issue(certs[0].ID)
	require.NoError(t, err)

	res, err := engine.List(Filter{Search: "go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hiking", "Rust", "Go Basics"}, names(res.Items))

	res, err = engine.List(Filter{Search: "go", OwnerID: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hiking", "Go Basics"}, names(res.Items))

	res, err = engine.List(Filter{Search: "go", OwnerID: "1", Status: models.StatusIssued})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Basics"}, names(res.Items))

	res, err = engine.List(Filter{Search: certs[1].CertificateID[5:]})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestListDateBoundsAreInclusive(t *testing.T) {
	engine, clock := newTestEngine(t)
	certs := seed(t, engine, clock,
		models.CertificateInput{OwnerID: "1", Name: "a", Type: models.TypeCompletion},
		models.CertificateInput{OwnerID: "1", Name: "b", Type: models.TypeCompletion},
		models.CertificateInput{OwnerID: "1", Name: "c", Type: models.TypeCompletion},
	)

	from := certs[1].CreatedAt
	to := certs[2].CreatedAt
	res, err := engine.List(Filter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, names(res.Items))
}

func TestStatisticsCountsExpiredAlongsideStatus(t *testing.T) {
	engine, clock := newTestEngine(t)
	past := clock.Now().Add(-time.Hour)
	future := clock.Now().Add(24 * time.Hour)

	certs := seed(t, engine, clock,
		models.CertificateInput{OwnerID: "1", Name: "expired issued", Type: models.TypeCompletion, ExpiresAt: &past},
		models.CertificateInput{OwnerID: "1", Name: "valid issued", Type: models.TypeCompletion, ExpiresAt: &future},
		models.CertificateInput{OwnerID: "1", Name: "draft", Type: models.TypeCompletion},
		models.CertificateInput{OwnerID: "2", Name: "revoked", Type: models.TypeCompletion},
	)
	_, err := engine.Issue(certs[0].ID)
	require.NoError(t, err)
	_, err = engine.Issue(certs[1].ID)
	require.NoError(t, err)
	_, err = engine.Revoke(certs[3].ID, "")
	require.NoError(t, err)

	stats, err := engine.Statistics("")
	require.NoError(t, err)
	assert.Equal(t, Statistics{Total: 4, Issued: 2, Draft: 1, Revoked: 1, Expired: 1}, *stats)

	stats, err = engine.Statistics("2")
	require.NoError(t, err)
	assert.Equal(t, Statistics{Total: 1, Revoked: 1}, *stats)
}
