package seed

import (
	"fmt"
	"log"

	"agora/internal/models"

	"gorm.io/gorm"
)

// Options configures demo data generation.
type Options struct {
	NumUsers       int
	NumCommunities int
}

// Demo populates the database with generated users, communities, memberships,
// and a few bans. Intended for development environments only.
func Demo(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 25
	}
	if opts.NumCommunities <= 0 {
		opts.NumCommunities = 5
	}

	factory := NewFactory(db)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		users = append(users, user)
	}

	for i := 0; i < opts.NumCommunities; i++ {
		creator := users[factory.rand.Intn(len(users))]
		community, err := factory.CreateCommunity(creator)
		if err != nil {
			return fmt.Errorf("seed community: %w", err)
		}

		members, rest := pickUsers(factory, users, 3+factory.rand.Intn(len(users)))
		if err := factory.JoinUsers(community, members); err != nil {
			return fmt.Errorf("seed memberships: %w", err)
		}

		// Banned users are never members, so targets come from the rest.
		if len(rest) > 0 && rest[0].ID != creator.ID && factory.rand.Intn(2) == 0 {
			if _, err := factory.CreateBan(community, creator, rest[0]); err != nil {
				return fmt.Errorf("seed ban: %w", err)
			}
		}
	}

	log.Printf("seeded %d users and %d communities", opts.NumUsers, opts.NumCommunities)
	return nil
}

// pickUsers splits the users into n random picks and the remainder.
func pickUsers(f *Factory, users []*models.User, n int) (picked, rest []*models.User) {
	if n > len(users) {
		n = len(users)
	}
	shuffled := make([]*models.User, len(users))
	copy(shuffled, users)
	f.rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n], shuffled[n:]
}
