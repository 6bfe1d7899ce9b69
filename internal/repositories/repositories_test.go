package repositories

import (
	"context"
	"errors"
	"flag"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"supplierhub/internal/database"
	"supplierhub/internal/models"
)

var testDB database.Service

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Warn().Err(err).Msg("Could not start mongodb container, repository tests will be skipped")
		os.Exit(m.Run())
	}

	uri, err := container.ConnectionString(ctx)
	if err == nil {
		testDB, err = database.New(ctx, uri, "supplierhub_repo_test")
	}
	if err == nil {
		err = database.EnsureIndexes(ctx, testDB.Database())
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not prepare test database")
		testDB = nil
	}

	code := m.Run()

	if testDB != nil {
		_ = testDB.Close(ctx)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Error().Err(err).Msg("Could not teardown mongodb container")
	}
	os.Exit(code)
}

func setup(t *testing.T) context.Context {
	t.Helper()
	if testDB == nil {
		t.Skip("mongodb not available")
	}
	ctx := context.Background()
	for _, c := range []string{database.UsersCollection, database.OTPsCollection, database.SuppliersCollection, database.RevokedTokensCollection} {
		_, err := testDB.Database().Collection(c).DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	}
	return ctx
}

func TestUserRepository_FindOrCreateByPhone(t *testing.T) {
	ctx := setup(t)
	repo := NewUserRepository(testDB)
	now := time.Now().UTC()

	first, created, err := repo.FindOrCreateByPhone(ctx, "+6281234567890", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.IsVerified)
	assert.Nil(t, first.LastTokenIssued)

	second, created, err := repo.FindOrCreateByPhone(ctx, "+6281234567890", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestUserRepository_FindOrCreateByPhone_Concurrent(t *testing.T) {
	ctx := setup(t)
	repo := NewUserRepository(testDB)

	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := repo.FindOrCreateByPhone(ctx, "+6280000000001", time.Now())
			errs[i] = err
			if u != nil {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	count, err := testDB.Database().Collection(database.UsersCollection).CountDocuments(ctx, bson.M{"phone": "+6280000000001"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUserRepository_RecordLoginAndWatermark(t *testing.T) {
	ctx := setup(t)
	repo := NewUserRepository(testDB)
	now := time.Now().UTC().Truncate(time.Millisecond)

	u, _, err := repo.FindOrCreateByPhone(ctx, "+6281111111111", now)
	require.NoError(t, err)

	updated, err := repo.RecordLogin(ctx, u.ID, "iPhone", now)
	require.NoError(t, err)
	assert.True(t, updated.IsVerified)
	assert.Equal(t, "iPhone", updated.DeviceInfo)
	require.NotNil(t, updated.LastTokenIssued)
	assert.True(t, updated.LastTokenIssued.Equal(now))

	later := now.Add(time.Hour)
	require.NoError(t, repo.SetWatermark(ctx, u.ID, later))
	reloaded, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.LastTokenIssued.Equal(later))

	_, err = repo.RecordLogin(ctx, primitive.NewObjectID(), "", now)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(repo.SetWatermark(ctx, primitive.NewObjectID(), now), ErrNotFound))
}

func TestOTPRepository_UpsertReplacesAndConsumes(t *testing.T) {
	ctx := setup(t)
	repo := NewOTPRepository(testDB)
	now := time.Now().UTC()
	phone := "+6281234567890"

	require.NoError(t, repo.Upsert(ctx, phone, "111111", now.Add(10*time.Minute), now))
	require.NoError(t, repo.Upsert(ctx, phone, "222222", now.Add(10*time.Minute), now))

	_, err := repo.Consume(ctx, phone, "111111")
	assert.True(t, errors.Is(err, ErrNotFound), "first code must be replaced")

	otp, err := repo.Consume(ctx, phone, "222222")
	require.NoError(t, err)
	assert.Equal(t, phone, otp.Phone)

	_, err = repo.Consume(ctx, phone, "222222")
	assert.True(t, errors.Is(err, ErrNotFound), "code is single use")
}

func TestOTPRepository_DeleteExpired(t *testing.T) {
	ctx := setup(t)
	repo := NewOTPRepository(testDB)
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, "+6280000000001", "111111", now.Add(-time.Minute), now.Add(-11*time.Minute)))
	require.NoError(t, repo.Upsert(ctx, "+6280000000002", "222222", now.Add(time.Minute), now))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.Consume(ctx, "+6280000000002", "222222")
	assert.NoError(t, err)
}

func TestSupplierRepository_FindByID(t *testing.T) {
	ctx := setup(t)
	repo := NewSupplierRepository(testDB)

	s := models.Supplier{ID: primitive.NewObjectID(), CompanyName: "PT Semen", Status: "Pending"}
	_, err := testDB.Database().Collection(database.SuppliersCollection).InsertOne(ctx, s)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "PT Semen", found.CompanyName)

	_, err = repo.FindByID(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRevokedTokenRepository(t *testing.T) {
	ctx := setup(t)
	repo := NewRevokedTokenRepository(testDB)
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repo.Add(ctx, "tok-1", exp))
	require.NoError(t, repo.Add(ctx, "tok-1", exp))

	ok, err := repo.Contains(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Contains(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Clear(ctx))
	ok, err = repo.Contains(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
