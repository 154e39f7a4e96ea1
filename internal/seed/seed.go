package seed

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"linker/internal/models"
)

// Seeder orchestrates population of the development database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder with the given options.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 50
	}
	if opts.PersonasPerUser < 0 {
		opts.PersonasPerUser = 0
	}
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll wipes seeded tables. Personas go first because of the user
// foreign key.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	if err := s.db.Unscoped().Where("1 = 1").Delete(&models.Persona{}).Error; err != nil {
		return fmt.Errorf("clear personas: %w", err)
	}
	if err := s.db.Unscoped().Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	return nil
}

// Run seeds users with a realistic verification mix, then personas for the
// verified ones. Unverified accounts get no personas; they could not have
// created any through the API.
func (s *Seeder) Run() ([]models.User, error) {
	log.Printf("Seeding %d users...", s.opts.NumUsers)

	users := make([]models.User, 0, s.opts.NumUsers)
	personas := 0
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("seed user %d: %w", i, err)
		}

		if user.VerificationStatus == models.VerificationVerified {
			for j := 0; j < s.opts.PersonasPerUser; j++ {
				if _, err := s.factory.CreatePersona(user); err != nil {
					return nil, fmt.Errorf("seed persona for user %d: %w", user.ID, err)
				}
				personas++
			}
		}
		users = append(users, *user)
	}

	log.Printf("Seeded %d users and %d personas", len(users), personas)
	return users, nil
}

// Preset is a named seeding profile loaded from a YAML file.
type Preset struct {
	Name            string `yaml:"name"`
	Users           int    `yaml:"users"`
	PersonasPerUser int    `yaml:"personas_per_user"`
	Clean           bool   `yaml:"clean"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads seeding profiles from a YAML file.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return f.Presets, nil
}

// ApplyPreset runs the named preset from the given file.
func ApplyPreset(db *gorm.DB, path, name string) error {
	presets, err := LoadPresets(path)
	if err != nil {
		return err
	}
	for _, p := range presets {
		if p.Name != name {
			continue
		}
		s := NewSeeder(db, Options{
			NumUsers:        p.Users,
			PersonasPerUser: p.PersonasPerUser,
			ShouldClean:     p.Clean,
		})
		if p.Clean {
			if err := s.ClearAll(); err != nil {
				return err
			}
		}
		_, err := s.Run()
		return err
	}
	return fmt.Errorf("preset %q not found in %s", name, path)
}
