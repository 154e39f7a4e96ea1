// Package test contains integration tests that exercise the real database
// stack. They require a reachable PostgreSQL and are skipped otherwise.
package test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linker/internal/models"
	"linker/internal/repository"
	"linker/internal/seed"
)

type pgEnv struct {
	host string
	port string
	user string
	pass string
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func readPGEnv() pgEnv {
	return pgEnv{
		host: getEnvOrDefault("DB_HOST", "localhost"),
		port: getEnvOrDefault("DB_PORT", "5432"),
		user: getEnvOrDefault("DB_USER", "linker_user"),
		pass: getEnvOrDefault("DB_PASSWORD", "linker_password"),
	}
}

func maintenanceDSN(cfg pgEnv, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", cfg.user, cfg.pass, cfg.host, cfg.port, dbName)
}

// createEphemeralDB provisions a throwaway database for one test run and
// skips the test when PostgreSQL is not reachable.
func createEphemeralDB(t *testing.T) (pgEnv, string) {
	t.Helper()
	cfg := readPGEnv()
	dbName := fmt.Sprintf("linker_it_%d", time.Now().UnixNano())

	sqlDB, err := sql.Open("pgx", maintenanceDSN(cfg, "postgres"))
	if err != nil {
		t.Skipf("postgres driver unavailable: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		t.Skipf("postgres not reachable, skipping integration test: %v", err)
	}

	if _, err := sqlDB.ExecContext(context.Background(), `CREATE DATABASE `+dbName); err != nil {
		t.Fatalf("create ephemeral db: %v", err)
	}
	t.Cleanup(func() {
		_, _ = sqlDB.ExecContext(context.Background(), `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, dbName)
		_, _ = sqlDB.ExecContext(context.Background(), `DROP DATABASE IF EXISTS `+dbName)
	})

	return cfg, dbName
}

func openEphemeralGorm(t *testing.T, cfg pgEnv, dbName string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open(maintenanceDSN(cfg, dbName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Persona{}))
	return db
}

func TestPersonaLifecycleAgainstPostgres(t *testing.T) {
	cfg, dbName := createEphemeralDB(t)
	db := openEphemeralGorm(t, cfg, dbName)
	ctx := context.Background()

	users := repository.NewUserRepository(db)
	personas := repository.NewPersonaRepository(db)

	owner := &models.User{
		Username:           "it_owner",
		Email:              "owner@linker.test",
		Password:           "x",
		VerificationStatus: models.VerificationVerified,
	}
	require.NoError(t, users.Create(ctx, owner))

	other := &models.User{Username: "it_other", Email: "other@linker.test", Password: "x"}
	require.NoError(t, users.Create(ctx, other))

	persona := &models.Persona{UserID: owner.ID, DisplayName: "Night Owl"}
	require.NoError(t, personas.Create(ctx, persona))
	require.NotEmpty(t, persona.PersonaID)

	// Ownership scoping: the owner finds it, everyone else gets not found.
	got, err := personas.GetOwned(ctx, owner.ID, persona.PersonaID)
	require.NoError(t, err)
	assert.Equal(t, "Night Owl", got.DisplayName)

	_, err = personas.GetOwned(ctx, other.ID, persona.PersonaID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	// Update persists and round-trips.
	persona.DisplayName = "Quiet Type"
	require.NoError(t, personas.Update(ctx, owner.ID, persona))
	got, err = personas.GetOwned(ctx, owner.ID, persona.PersonaID)
	require.NoError(t, err)
	assert.Equal(t, "Quiet Type", got.DisplayName)

	// Soft delete hides the persona from every reader.
	require.NoError(t, personas.Delete(ctx, owner.ID, persona.PersonaID))
	_, err = personas.GetOwned(ctx, owner.ID, persona.PersonaID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	count, err := personas.CountByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVerificationStatusAgainstPostgres(t *testing.T) {
	cfg, dbName := createEphemeralDB(t)
	db := openEphemeralGorm(t, cfg, dbName)
	ctx := context.Background()

	users := repository.NewUserRepository(db)

	u := &models.User{Username: "it_pending", Email: "pending@linker.test", Password: "x"}
	require.NoError(t, users.Create(ctx, u))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationUnverified, got.VerificationStatus)

	require.NoError(t, users.SetVerificationStatus(ctx, u.ID, models.VerificationVerified))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, got.VerificationStatus)

	err = users.SetVerificationStatus(ctx, u.ID+999, models.VerificationVerified)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestSeederAgainstPostgres(t *testing.T) {
	cfg, dbName := createEphemeralDB(t)
	db := openEphemeralGorm(t, cfg, dbName)

	s := seed.NewSeeder(db, seed.Options{NumUsers: 10, PersonasPerUser: 1, SkipBcrypt: true})
	users, err := s.Run()
	require.NoError(t, err)
	assert.Len(t, users, 10)

	var personaCount int64
	require.NoError(t, db.Model(&models.Persona{}).Count(&personaCount).Error)
	var verifiedCount int64
	require.NoError(t, db.Model(&models.User{}).
		Where("verification_status = ?", models.VerificationVerified).Count(&verifiedCount).Error)
	assert.EqualValues(t, verifiedCount, personaCount)
}
