package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/utils"
)

// SetupTestDB creates an in-memory SQLite database with every table
// migrated. One open connection keeps the in-memory schema shared and
// serializes transactions.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateTestUser inserts a verified user with the given role.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	hash, err := utils.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:         uuid.New(),
		Name:       "Test " + string(role),
		Email:      string(role) + "-" + uuid.New().String()[:8] + "@example.tg",
		Password:   hash,
		Role:       role,
		IsVerified: true,
		IsActive:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func CallerFor(u *models.User) authz.Caller {
	return authz.NewCaller(u.ID, u.Role)
}

// CreateTestProject inserts a project owned by company in the given status.
func CreateTestProject(t *testing.T, db *gorm.DB, company *models.User, status models.ProjectStatus) *models.Project {
	t.Helper()

	p := &models.Project{
		CompanyID:   company.ID,
		Title:       "Site vitrine pour PME à Lomé",
		Description: "Refonte du site web",
		Budget:      500000,
		Skills:      models.EncodeSkills([]string{"go", "react"}),
		Status:      status,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

func CreateTestApplication(t *testing.T, db *gorm.DB, project *models.Project, freelance *models.User) *models.ProjectApplication {
	t.Helper()

	a := &models.ProjectApplication{
		ProjectID:   project.ID,
		FreelanceID: freelance.ID,
		CoverLetter: "Disponible immédiatement",
		Status:      models.ApplicationPending,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("failed to create test application: %v", err)
	}
	return a
}

func CreateTestFreelanceProfile(t *testing.T, db *gorm.DB, freelance *models.User, skills []string) *models.FreelanceProfile {
	t.Helper()

	p := &models.FreelanceProfile{
		UserID:       freelance.ID,
		FirstName:    "Kossi",
		LastName:     "Mensah",
		Title:        "Développeur backend",
		Skills:       models.EncodeSkills(skills),
		HourlyRate:   15000,
		Location:     "Lomé",
		Availability: models.AvailabilityAvailable,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

func CreateTestNotification(t *testing.T, db *gorm.DB, user *models.User) *models.Notification {
	t.Helper()

	n := &models.Notification{
		UserID:  user.ID,
		Type:    models.NotifNewMessage,
		Title:   "Nouveau message",
		Message: "Bonjour",
	}
	if err := db.Create(n).Error; err != nil {
		t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}

// Published is one event captured by RecordingPublisher.
type Published struct {
	UserID uuid.UUID
	Event  any
}

// RecordingPublisher captures realtime events instead of sending them.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Published
}

func (p *RecordingPublisher) Publish(_ context.Context, userID uuid.UUID, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{UserID: userID, Event: event})
	return nil
}

func (p *RecordingPublisher) For(userID uuid.UUID) []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Published
	for _, e := range p.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// FixedClock returns a clock func pinned to t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
