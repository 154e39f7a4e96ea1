// Command main runs the database seeder for Linker.
package main

import (
	"flag"
	"log"

	"linker/internal/config"
	"linker/internal/database"
	"linker/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	personasPerUser := flag.Int("personas", 2, "Personas per verified user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("fast", false, "Skip bcrypt hashing (dev only)")
	presetFile := flag.String("presets", "", "Path to a YAML preset file")
	preset := flag.String("preset", "", "Apply a named preset from the preset file")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *preset != "" {
		if *presetFile == "" {
			log.Fatal("-preset requires -presets pointing to a YAML file")
		}
		log.Printf("Applying preset %q from %s (ignoring other flags)", *preset, *presetFile)
		if err := seed.ApplyPreset(database.DB, *presetFile, *preset); err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
		log.Println("Done.")
		return
	}

	s := seed.NewSeeder(database.DB, seed.Options{
		NumUsers:        *numUsers,
		PersonasPerUser: *personasPerUser,
		ShouldClean:     *shouldClean,
		SkipBcrypt:      *skipBcrypt,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. All test users have the password: password123")
}
