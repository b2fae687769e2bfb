// Package lifecycle holds the project, application and review state
// machine. Every transition goes through an explicit table; anything not
// listed is rejected with KindInvalidState.
package lifecycle

import (
	"fmt"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
)

var projectTransitions = map[models.ProjectStatus][]models.ProjectStatus{
	models.ProjectOpen:       {models.ProjectInProgress, models.ProjectCancelled},
	models.ProjectInProgress: {models.ProjectCompleted, models.ProjectCancelled},
}

var applicationTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationPending: {models.ApplicationAccepted, models.ApplicationRejected},
}

func ValidProjectStatus(s models.ProjectStatus) bool {
	switch s {
	case models.ProjectOpen, models.ProjectInProgress, models.ProjectCompleted, models.ProjectCancelled:
		return true
	}
	return false
}

// ProjectTerminal reports whether no transition leaves s.
func ProjectTerminal(s models.ProjectStatus) bool {
	return len(projectTransitions[s]) == 0
}

func CheckProjectTransition(from, to models.ProjectStatus) error {
	for _, next := range projectTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperr.InvalidState(apperr.ReasonInvalidTransition,
		fmt.Sprintf("Project cannot move from %s to %s", from, to))
}

func CheckApplicationTransition(from, to models.ApplicationStatus) error {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return nil
		}
	}
	if from != models.ApplicationPending {
		return apperr.InvalidState(apperr.ReasonApplicationClosed,
			fmt.Sprintf("Application is already %s", from))
	}
	return apperr.InvalidState(apperr.ReasonInvalidTransition,
		fmt.Sprintf("Application cannot move from %s to %s", from, to))
}

// CanApply requires the project to be open.
func CanApply(p *models.Project) error {
	if p.Status != models.ProjectOpen {
		return apperr.InvalidState(apperr.ReasonProjectNotOpen, "Project is not open for applications")
	}
	return nil
}

// CanAccept checks that accepting a moves p to in_progress and a to accepted.
func CanAccept(p *models.Project, a *models.ProjectApplication) error {
	if a.ProjectID != p.ID {
		return apperr.NotFound("Application not found for this project")
	}
	if p.Status != models.ProjectOpen {
		return apperr.InvalidState(apperr.ReasonProjectNotOpen, "Project is not open")
	}
	if err := CheckProjectTransition(p.Status, models.ProjectInProgress); err != nil {
		return err
	}
	return CheckApplicationTransition(a.Status, models.ApplicationAccepted)
}

// CanReject allows rejecting pending applications of an open project.
func CanReject(p *models.Project, a *models.ProjectApplication) error {
	if a.ProjectID != p.ID {
		return apperr.NotFound("Application not found for this project")
	}
	if p.Status != models.ProjectOpen {
		return apperr.InvalidState(apperr.ReasonProjectNotOpen, "Project is not open")
	}
	return CheckApplicationTransition(a.Status, models.ApplicationRejected)
}

type Eligibility struct {
	CanReview bool   `json:"can_review"`
	Reason    string `json:"reason,omitempty"`
}

type ReviewInput struct {
	Caller          authz.Caller
	Project         *models.Project
	AlreadyReviewed bool
}

// CanReview is a pure function of its input.
func CanReview(in ReviewInput) Eligibility {
	if err := authz.Authorize(in.Caller,
		authz.RequireRole(models.RoleCompany),
		authz.RequireOwner(in.Project.CompanyID),
	); err != nil {
		return Eligibility{Reason: apperr.ReasonOf(err)}
	}
	if in.Project.Status != models.ProjectCompleted {
		return Eligibility{Reason: apperr.ReasonNotCompleted}
	}
	if in.AlreadyReviewed {
		return Eligibility{Reason: apperr.ReasonAlreadyReviewed}
	}
	return Eligibility{CanReview: true}
}

// Err turns a negative eligibility into the matching taxonomy error.
func (e Eligibility) Err() error {
	switch e.Reason {
	case "":
		return nil
	case apperr.ReasonUnauthenticated:
		return apperr.Unauthenticated()
	case apperr.ReasonWrongRole:
		return apperr.WrongRole("Only company accounts can review")
	case apperr.ReasonNotOwner:
		return apperr.NotOwner("Only the project owner can review")
	case apperr.ReasonNotCompleted:
		return apperr.InvalidState(apperr.ReasonNotCompleted, "Project is not completed")
	case apperr.ReasonAlreadyReviewed:
		return apperr.Duplicate(apperr.ReasonAlreadyReviewed, "Project already reviewed")
	default:
		return apperr.InvalidState(e.Reason, "Review not allowed")
	}
}
