package reviews_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/reviews"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/testutil"
)

type fixture struct {
	db        *gorm.DB
	svc       *reviews.ReviewService
	pub       *testutil.RecordingPublisher
	company   *models.User
	freelance *models.User
	project   *models.Project
}

// setup builds a project owned by company with freelance hired, in status.
func setup(t *testing.T, status models.ProjectStatus) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &testutil.RecordingPublisher{}
	svc := reviews.NewReviewService(db, notifications.NewNotificationService(db, pub, nil))

	company := testutil.CreateTestUser(t, db, models.RoleCompany)
	freelance := testutil.CreateTestUser(t, db, models.RoleFreelance)
	testutil.CreateTestFreelanceProfile(t, db, freelance, []string{"go"})

	p := testutil.CreateTestProject(t, db, company, status)
	require.NoError(t, db.Model(p).Update("accepted_freelance_id", freelance.ID).Error)
	p.AcceptedFreelanceID = &freelance.ID

	return fixture{db: db, svc: svc, pub: pub, company: company, freelance: freelance, project: p}
}

func TestCanReview(t *testing.T) {
	f := setup(t, models.ProjectCompleted)
	stranger := testutil.CreateTestUser(t, f.db, models.RoleCompany)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller authz.Caller
		ok     bool
		reason string
	}{
		{"owner", testutil.CallerFor(f.company), true, ""},
		{"other company", testutil.CallerFor(stranger), false, apperr.ReasonNotOwner},
		{"freelance", testutil.CallerFor(f.freelance), false, apperr.ReasonWrongRole},
		{"anonymous", authz.Anonymous(), false, apperr.ReasonUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := f.svc.CanReview(ctx, tt.caller, f.project.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, e.CanReview)
			assert.Equal(t, tt.reason, e.Reason)
		})
	}

	_, err := f.svc.CanReview(ctx, testutil.CallerFor(f.company), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCanReview_NotCompleted(t *testing.T) {
	f := setup(t, models.ProjectInProgress)

	e, err := f.svc.CanReview(context.Background(), testutil.CallerFor(f.company), f.project.ID)
	require.NoError(t, err)
	assert.False(t, e.CanReview)
	assert.Equal(t, apperr.ReasonNotCompleted, e.Reason)
}

func TestCreate_HappyPathThenAlreadyReviewed(t *testing.T) {
	f := setup(t, models.ProjectCompleted)
	ctx := context.Background()
	caller := testutil.CallerFor(f.company)

	r, err := f.svc.Create(ctx, caller, f.project.ID, reviews.ReviewInput{Rating: 4, Comment: "Très bon travail"})
	require.NoError(t, err)
	assert.Equal(t, f.freelance.ID, r.FreelanceID)
	assert.Equal(t, f.company.ID, r.CompanyID)

	var profile models.FreelanceProfile
	require.NoError(t, f.db.First(&profile, "user_id = ?", f.freelance.ID).Error)
	assert.InDelta(t, 4.0, profile.Rating, 0.001)
	assert.Equal(t, 1, profile.ReviewCount)
	assert.Len(t, f.pub.For(f.freelance.ID), 1)

	e, err := f.svc.CanReview(ctx, caller, f.project.ID)
	require.NoError(t, err)
	assert.False(t, e.CanReview)
	assert.Equal(t, apperr.ReasonAlreadyReviewed, e.Reason)

	_, err = f.svc.Create(ctx, caller, f.project.ID, reviews.ReviewInput{Rating: 5})
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonAlreadyReviewed, apperr.ReasonOf(err))
}

func TestCreate_GuardsInOrder(t *testing.T) {
	f := setup(t, models.ProjectInProgress)
	stranger := testutil.CreateTestUser(t, f.db, models.RoleCompany)
	ctx := context.Background()
	in := reviews.ReviewInput{Rating: 5}

	_, err := f.svc.Create(ctx, authz.Anonymous(), f.project.ID, in)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, testutil.CallerFor(f.freelance), f.project.ID, in)
	assert.Equal(t, apperr.KindWrongRole, apperr.KindOf(err))

	// not owner wins over not completed
	_, err = f.svc.Create(ctx, testutil.CallerFor(stranger), f.project.ID, in)
	assert.Equal(t, apperr.KindNotOwner, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, testutil.CallerFor(f.company), f.project.ID, in)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonNotCompleted, apperr.ReasonOf(err))

	_, err = f.svc.Create(ctx, testutil.CallerFor(f.company), f.project.ID, reviews.ReviewInput{Rating: 9})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// identity and role come before the body
	_, err = f.svc.Create(ctx, authz.Anonymous(), f.project.ID, reviews.ReviewInput{Rating: 9})
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, err = f.svc.Create(ctx, testutil.CallerFor(f.freelance), f.project.ID, reviews.ReviewInput{Rating: 9})
	assert.Equal(t, apperr.KindWrongRole, apperr.KindOf(err))

	var n int64
	f.db.Model(&models.Review{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreate_ConcurrentOnlyOneWins(t *testing.T) {
	f := setup(t, models.ProjectCompleted)
	caller := testutil.CallerFor(f.company)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), caller, f.project.ID, reviews.ReviewInput{Rating: 3 + i})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindDuplicate):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)

	var n int64
	f.db.Model(&models.Review{}).Where("project_id = ?", f.project.ID).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestReviewUniqueIndexTranslatesToDuplicate(t *testing.T) {
	f := setup(t, models.ProjectCompleted)
	first := models.Review{ProjectID: f.project.ID, CompanyID: f.company.ID, FreelanceID: f.freelance.ID, Rating: 5}
	require.NoError(t, f.db.Create(&first).Error)

	second := models.Review{ProjectID: f.project.ID, CompanyID: f.company.ID, FreelanceID: f.freelance.ID, Rating: 1}
	err := apperr.FromStore(f.db.Create(&second).Error, "Project not found", apperr.Duplicate(apperr.ReasonAlreadyReviewed, "dup"))
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonAlreadyReviewed, apperr.ReasonOf(err))
}

func TestListForFreelance(t *testing.T) {
	f := setup(t, models.ProjectCompleted)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testutil.CallerFor(f.company), f.project.ID, reviews.ReviewInput{Rating: 5, Comment: "Parfait"})
	require.NoError(t, err)

	res, err := f.svc.ListForFreelance(ctx, f.freelance.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.NotNil(t, res.Items[0].Project)
	assert.Equal(t, f.project.Title, res.Items[0].Project.Title)

	res, err = f.svc.ListForFreelance(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestCreate_MissingProject(t *testing.T) {
	f := setup(t, models.ProjectCompleted)

	_, err := f.svc.Create(context.Background(), testutil.CallerFor(f.company), uuid.New(), reviews.ReviewInput{Rating: 4})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.ReasonNotFound, ae.Reason)
	assert.Equal(t, "Project not found", ae.Message)
}
