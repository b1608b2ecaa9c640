// Command seed populates the database with demo data for development.
package main

import (
	"flag"
	"log"
	"strings"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "number of demo users to create")
	numCommunities := flag.Int("communities", 5, "number of demo communities to create")
	builtInsOnly := flag.Bool("builtins-only", false, "seed only the built-in communities")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if strings.EqualFold(cfg.Env, "production") {
		log.Fatal("refusing to seed demo data in production")
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedBuiltIns: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	if *builtInsOnly {
		log.Println("built-in communities seeded")
		return
	}

	if err := seed.Demo(db, seed.Options{
		NumUsers:       *numUsers,
		NumCommunities: *numCommunities,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
