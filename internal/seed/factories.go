// Package seed creates development and test data for the Linker database.
// Not for production use.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"linker/internal/models"
)

// Options control how much data the seeder creates and how it behaves.
type Options struct {
	NumUsers        int
	PersonasPerUser int
	ShouldClean     bool
	// SkipBcrypt replaces password hashing with a plain marker. Dev only;
	// hashing dominates seeding time for large user counts.
	SkipBcrypt bool
	DryRun     bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

// verificationMix approximates a real population: most accounts verified,
// a tail of pending, unverified and lapsed ones.
var verificationMix = []struct {
	status models.VerificationStatus
	weight int
}{
	{models.VerificationVerified, 60},
	{models.VerificationPending, 15},
	{models.VerificationUnverified, 20},
	{models.VerificationExpired, 5},
}

func (f *Factory) randomVerification() models.VerificationStatus {
	total := 0
	for _, m := range verificationMix {
		total += m.weight
	}
	n := f.rng.Intn(total)
	for _, m := range verificationMix {
		if n < m.weight {
			return m.status
		}
		n -= m.weight
	}
	return models.VerificationUnverified
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:           gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:              gofakeit.Email(),
		Headline:           gofakeit.JobTitle() + " at " + gofakeit.Company(),
		Avatar:             fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		VerificationStatus: f.randomVerification(),
	}

	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	// realistic created_at spread over the last 90 days
	daysBack := f.rng.Intn(90)
	user.CreatedAt = time.Now().Add(-time.Duration(daysBack) * 24 * time.Hour)

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s (%s)", user.Username, user.VerificationStatus)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

var personaAdjectives = []string{
	"Quiet", "Restless", "Curious", "Wandering", "Midnight", "Hidden",
	"Patient", "Honest", "Tired", "Hopeful", "Stubborn", "Distant",
}

var personaNouns = []string{
	"Owl", "Fox", "Cartographer", "Archivist", "Lighthouse", "Comet",
	"Gardener", "Drifter", "Observer", "Sparrow", "Nomad", "Cipher",
}

// CreatePersona constructs and persists an anonymous persona for a user.
func (f *Factory) CreatePersona(user *models.User, overrides ...func(*models.Persona)) (*models.Persona, error) {
	persona := &models.Persona{
		UserID: user.ID,
		DisplayName: fmt.Sprintf("%s %s",
			personaAdjectives[f.rng.Intn(len(personaAdjectives))],
			personaNouns[f.rng.Intn(len(personaNouns))]),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	for _, override := range overrides {
		override(persona)
	}

	if f.opts.DryRun {
		f.nextID++
		persona.ID = f.nextID
		log.Printf("[dry-run] CreatePersona: %s for user %d", persona.DisplayName, user.ID)
		return persona, nil
	}

	if err := f.db.Create(persona).Error; err != nil {
		return nil, err
	}
	return persona, nil
}
