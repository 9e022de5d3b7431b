// Package seed populates the database with demo data for development and
// testing. Not intended for production use.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/repository"
	"atelier/internal/service"
	"atelier/internal/session"
	"atelier/internal/shortcode"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options tunes the generated dataset.
type Options struct {
	Users            int
	SpacesPerUser    int
	ProjectsPerSpace int
	// SkipBcrypt stores a plaintext password for faster local runs.
	SkipBcrypt bool
}

// DefaultOptions is the dataset used when no flags are given.
func DefaultOptions() Options {
	return Options{Users: 25, SpacesPerUser: 1, ProjectsPerSpace: 3}
}

// Seeder builds demo users, spaces, memberships, and projects.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll truncates seeded tables. Order respects foreign keys.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, table := range []string{
		"membership_roles",
		"project_memberships",
		"projects",
		"tenant_memberships",
		"roles",
		"tenants",
		"users",
	} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// CreateUser persists a fake user. Every seeded account shares the password
// "password123".
func (s *Seeder) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:    gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		DisplayName: gofakeit.Name(),
		Email:       gofakeit.Email(),
		Bio:         gofakeit.Sentence(10),
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	if s.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSpace persists a space for the owner, with a fresh code, an owner
// membership, and the default role catalog.
func (s *Seeder) CreateSpace(ctx context.Context, owner *models.User) (*models.Tenant, error) {
	tenants := repository.NewTenantRepository(s.db)
	memberships := repository.NewMembershipRepository(s.db)
	roles := service.NewRoleService(repository.NewRoleRepository(s.db), tenants, memberships)
	svc := service.NewTenantService(tenants, memberships, roles, session.NewStore(nil))

	name := fmt.Sprintf("%s %s", gofakeit.Adjective(), gofakeit.Noun())
	return svc.CreateTenant(ctx, service.CreateTenantInput{
		OwnerUserID: owner.ID,
		Names:       models.LocaleNames{"en": name},
	})
}

// AttachMember joins a user to a space at the given tier.
func (s *Seeder) AttachMember(space *models.Tenant, user *models.User, tier permission.Tier) error {
	return s.db.Create(&models.TenantMembership{
		TenantID: space.ID,
		UserID:   user.ID,
		Tier:     tier,
	}).Error
}

// CreateProject persists a project under the space with a fresh code.
func (s *Seeder) CreateProject(ctx context.Context, space *models.Tenant, owner *models.User) (*models.Project, error) {
	projects := repository.NewProjectRepository(s.db)
	code, err := shortcode.AllocateUnique(ctx, projects.CodeExists)
	if err != nil {
		return nil, err
	}
	project := &models.Project{
		TenantID:    space.ID,
		OwnerUserID: owner.ID,
		Name:        fmt.Sprintf("%s %s", gofakeit.Adjective(), gofakeit.Noun()),
		Code:        &code,
	}
	if err := s.db.Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Run builds the full demo dataset: users, one or more spaces each, a mesh of
// cross-memberships, and projects with a few project members.
func (s *Seeder) Run(ctx context.Context) error {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		u, err := s.CreateUser()
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		users = append(users, u)
	}
	log.Printf("Created %d users", len(users))

	var spaces []*models.Tenant
	for _, u := range users {
		for j := 0; j < s.opts.SpacesPerUser; j++ {
			space, err := s.CreateSpace(ctx, u)
			if err != nil {
				return fmt.Errorf("creating space: %w", err)
			}
			spaces = append(spaces, space)
		}
	}
	log.Printf("Created %d spaces", len(spaces))

	// Join each user to a few spaces they do not own.
	tiers := []permission.Tier{permission.TierAdmin, permission.TierMember, permission.TierMember}
	joined := 0
	for _, u := range users {
		for k := 0; k < 3 && len(spaces) > 1; k++ {
			space := spaces[s.rng.Intn(len(spaces))]
			if space.OwnerUserID == u.ID {
				continue
			}
			err := s.AttachMember(space, u, tiers[s.rng.Intn(len(tiers))])
			if err != nil {
				// Duplicate membership from random collisions is fine.
				continue
			}
			joined++
		}
	}
	log.Printf("Created %d cross-memberships", joined)

	projects := 0
	for _, space := range spaces {
		for p := 0; p < s.opts.ProjectsPerSpace; p++ {
			owner := &models.User{ID: space.OwnerUserID}
			if _, err := s.CreateProject(ctx, space, owner); err != nil {
				return fmt.Errorf("creating project: %w", err)
			}
			projects++
		}
	}
	log.Printf("Created %d projects", projects)

	return nil
}
