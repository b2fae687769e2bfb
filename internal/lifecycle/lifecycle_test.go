package lifecycle_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/lifecycle"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
)

func TestCheckProjectTransition(t *testing.T) {
	allowed := map[[2]models.ProjectStatus]bool{
		{models.ProjectOpen, models.ProjectInProgress}:      true,
		{models.ProjectOpen, models.ProjectCancelled}:       true,
		{models.ProjectInProgress, models.ProjectCompleted}: true,
		{models.ProjectInProgress, models.ProjectCancelled}: true,
	}
	all := []models.ProjectStatus{models.ProjectOpen, models.ProjectInProgress, models.ProjectCompleted, models.ProjectCancelled}

	for _, from := range all {
		for _, to := range all {
			err := lifecycle.CheckProjectTransition(from, to)
			if allowed[[2]models.ProjectStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.True(t, apperr.Is(err, apperr.KindInvalidState), "%s -> %s", from, to)
			}
		}
	}

	assert.True(t, lifecycle.ProjectTerminal(models.ProjectCompleted))
	assert.True(t, lifecycle.ProjectTerminal(models.ProjectCancelled))
	assert.False(t, lifecycle.ProjectTerminal(models.ProjectOpen))
}

func TestCheckApplicationTransition(t *testing.T) {
	assert.NoError(t, lifecycle.CheckApplicationTransition(models.ApplicationPending, models.ApplicationAccepted))
	assert.NoError(t, lifecycle.CheckApplicationTransition(models.ApplicationPending, models.ApplicationRejected))

	err := lifecycle.CheckApplicationTransition(models.ApplicationAccepted, models.ApplicationRejected)
	assert.Equal(t, apperr.ReasonApplicationClosed, apperr.ReasonOf(err))
	err = lifecycle.CheckApplicationTransition(models.ApplicationRejected, models.ApplicationAccepted)
	assert.Equal(t, apperr.ReasonApplicationClosed, apperr.ReasonOf(err))
	err = lifecycle.CheckApplicationTransition(models.ApplicationPending, models.ApplicationPending)
	assert.Equal(t, apperr.ReasonInvalidTransition, apperr.ReasonOf(err))
}

func TestCanAccept(t *testing.T) {
	p := &models.Project{ID: uuid.New(), Status: models.ProjectOpen}
	a := &models.ProjectApplication{ID: uuid.New(), ProjectID: p.ID, Status: models.ApplicationPending}
	assert.NoError(t, lifecycle.CanAccept(p, a))

	other := &models.ProjectApplication{ID: uuid.New(), ProjectID: uuid.New(), Status: models.ApplicationPending}
	assert.True(t, apperr.Is(lifecycle.CanAccept(p, other), apperr.KindNotFound))

	p.Status = models.ProjectInProgress
	assert.Equal(t, apperr.ReasonProjectNotOpen, apperr.ReasonOf(lifecycle.CanAccept(p, a)))

	p.Status = models.ProjectOpen
	a.Status = models.ApplicationRejected
	assert.Equal(t, apperr.ReasonApplicationClosed, apperr.ReasonOf(lifecycle.CanAccept(p, a)))
}

func TestCanApply(t *testing.T) {
	assert.NoError(t, lifecycle.CanApply(&models.Project{Status: models.ProjectOpen}))
	for _, s := range []models.ProjectStatus{models.ProjectInProgress, models.ProjectCompleted, models.ProjectCancelled} {
		err := lifecycle.CanApply(&models.Project{Status: s})
		assert.Equal(t, apperr.ReasonProjectNotOpen, apperr.ReasonOf(err))
	}
}

func TestCanReview(t *testing.T) {
	owner := uuid.New()
	project := &models.Project{ID: uuid.New(), CompanyID: owner, Status: models.ProjectCompleted}
	ownerCaller := authz.NewCaller(owner, models.RoleCompany)

	tests := []struct {
		name     string
		in       lifecycle.ReviewInput
		expected lifecycle.Eligibility
	}{
		{"eligible", lifecycle.ReviewInput{Caller: ownerCaller, Project: project}, lifecycle.Eligibility{CanReview: true}},
		{"anonymous", lifecycle.ReviewInput{Caller: authz.Anonymous(), Project: project}, lifecycle.Eligibility{Reason: apperr.ReasonUnauthenticated}},
		{"freelance", lifecycle.ReviewInput{Caller: authz.NewCaller(uuid.New(), models.RoleFreelance), Project: project}, lifecycle.Eligibility{Reason: apperr.ReasonWrongRole}},
		{"other company", lifecycle.ReviewInput{Caller: authz.NewCaller(uuid.New(), models.RoleCompany), Project: project}, lifecycle.Eligibility{Reason: apperr.ReasonNotOwner}},
		{"already reviewed", lifecycle.ReviewInput{Caller: ownerCaller, Project: project, AlreadyReviewed: true}, lifecycle.Eligibility{Reason: apperr.ReasonAlreadyReviewed}},
		{"not completed", lifecycle.ReviewInput{Caller: ownerCaller, Project: &models.Project{CompanyID: owner, Status: models.ProjectInProgress}}, lifecycle.Eligibility{Reason: apperr.ReasonNotCompleted}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := lifecycle.CanReview(tt.in)
			assert.Equal(t, tt.expected, first)
			// repeated evaluation without mutation is stable
			assert.Equal(t, first, lifecycle.CanReview(tt.in))
		})
	}
}

func TestEligibilityErr(t *testing.T) {
	assert.NoError(t, lifecycle.Eligibility{CanReview: true}.Err())
	assert.True(t, apperr.Is(lifecycle.Eligibility{Reason: apperr.ReasonAlreadyReviewed}.Err(), apperr.KindDuplicate))
	assert.True(t, apperr.Is(lifecycle.Eligibility{Reason: apperr.ReasonNotCompleted}.Err(), apperr.KindInvalidState))
	assert.True(t, apperr.Is(lifecycle.Eligibility{Reason: apperr.ReasonNotOwner}.Err(), apperr.KindNotOwner))
}
