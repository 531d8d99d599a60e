package profile

import (
	"context"
	"errors"
	"time"
)

// Field names a list-valued section of a user's document.
type Field string

const (
	FieldEducation      Field = "education"
	FieldExperience     Field = "experience"
	FieldCertifications Field = "certifications"
	FieldSkills         Field = "skills"
)

var Fields = []Field{FieldEducation, FieldExperience, FieldCertifications, FieldSkills}

var ErrUnknownField = errors.New("unknown profile field")

func (f Field) Valid() bool {
	switch f {
	case FieldEducation, FieldExperience, FieldCertifications, FieldSkills:
		return true
	}
	return false
}

type UserProfile struct {
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email"`
	Mobile          string  `json:"mobile"`
	Bio             string  `json:"bio"`
	ProfileImageRef *string `json:"profileImageRef,omitempty"`
}

// Patch carries a partial scalar update. Nil fields are left untouched.
type Patch struct {
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	Email           *string `json:"email,omitempty"`
	Mobile          *string `json:"mobile,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	ProfileImageRef *string `json:"profileImageRef,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.Mobile == nil && p.Bio == nil && p.ProfileImageRef == nil
}

// Apply merges p over u and returns the result; u is not modified.
func (p Patch) Apply(u UserProfile) UserProfile {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Mobile != nil {
		u.Mobile = *p.Mobile
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.ProfileImageRef != nil {
		ref := *p.ProfileImageRef
		u.ProfileImageRef = &ref
	}
	return u
}

// Document is the per-user record: scalar profile fields plus the named sections.
type Document struct {
	OwnerID        string               `json:"owner_id"`
	Profile        UserProfile          `json:"profile"`
	Education      []EducationEntry     `json:"education"`
	Experience     []ExperienceEntry    `json:"experience"`
	Certifications []CertificationEntry `json:"certifications"`
	Skills         []string             `json:"skills"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewDocument returns an empty document with non-nil sections.
func NewDocument(ownerID string) *Document {
	return &Document{
		OwnerID:        ownerID,
		Education:      []EducationEntry{},
		Experience:     []ExperienceEntry{},
		Certifications: []CertificationEntry{},
		Skills:         []string{},
	}
}

// Store is the per-user document store. Get returns (nil, nil) when the user has no
// document yet. Array operations create the document on first write.
type Store interface {
	Get(ctx context.Context, ownerID string) (*Document, error)
	SetMerge(ctx context.Context, ownerID string, patch Patch) error
	SetArrayField(ctx context.Context, ownerID string, field Field, items any) error
	UnionAppend(ctx context.Context, ownerID string, field Field, item any) error
	RemoveByKey(ctx context.Context, ownerID string, field Field, key string) error
}
