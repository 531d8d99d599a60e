package http

import (
	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is a partial update; omitted fields keep their value.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Mobile    *string `json:"mobile"`
	Bio       *string `json:"bio"`
}

func (req UpdateProfileRequest) ToPatch() profile.Patch {
	return profile.Patch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Bio:       req.Bio,
	}
}

type EducationRequest struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func (req EducationRequest) ToDomain() profile.EducationEntry {
	return profile.EducationEntry{
		Institution: req.Institution,
		Degree:      req.Degree,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
}

type ExperienceRequest struct {
	Company   string `json:"company"`
	Position  string `json:"position"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (req ExperienceRequest) ToDomain() profile.ExperienceEntry {
	return profile.ExperienceEntry{
		Company:   req.Company,
		Position:  req.Position,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
}

type CertificationRequest struct {
	Name      string `json:"name"`
	Issuer    string `json:"issuer"`
	IssueDate string `json:"issueDate"`
}

func (req CertificationRequest) ToDomain() profile.CertificationEntry {
	return profile.CertificationEntry{
		Name:      req.Name,
		Issuer:    req.Issuer,
		IssueDate: req.IssueDate,
	}
}

type SkillRequest struct {
	Value string `json:"value"`
}

func (req SkillRequest) ToDomain() string { return req.Value }

type ReplaceSkillsRequest struct {
	Skills []string `json:"skills" binding:"required"`
}
