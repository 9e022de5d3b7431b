// Command main runs the database seeder for Atelier.
package main

import (
	"context"
	"flag"
	"log"

	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	spacesPerUser := flag.Int("spaces", 1, "Spaces owned per user")
	projectsPerSpace := flag.Int("projects", 3, "Projects per space")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("fast", false, "Skip bcrypt hashing for faster runs")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d spaces each, %d projects per space, clean=%v\n",
		*numUsers, *spacesPerUser, *projectsPerSpace, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Users:            *numUsers,
		SpacesPerUser:    *spacesPerUser,
		ProjectsPerSpace: *projectsPerSpace,
		SkipBcrypt:       *skipBcrypt,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. All seeded users have the password: password123")
}
