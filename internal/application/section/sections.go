package section

import (
	"slices"

	"github.com/khoahotran/profile-editor/internal/application/collection"
	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type (
	Education      = Controller[profile.EducationEntry]
	Experience     = Controller[profile.ExperienceEntry]
	Certifications = Controller[profile.CertificationEntry]
	Skills         = Controller[string]
)

func NewEducation(store profile.Store, publisher service.EventPublisher, pageSize int, log logger.Logger) *Education {
	spec := collection.Spec[profile.EducationEntry]{
		Field:   profile.FieldEducation,
		Extract: func(d *profile.Document) []profile.EducationEntry { return d.Education },
		Key:     func(e profile.EducationEntry) string { return e.ID },
		WithKey: func(e profile.EducationEntry, id string) profile.EducationEntry { e.ID = id; return e },
	}
	validate := func(e profile.EducationEntry, _ string, _ []profile.EducationEntry) error { return e.Validate() }
	return NewController(collection.NewSync(spec, store, publisher, log), validate, pageSize, log)
}

func NewExperience(store profile.Store, publisher service.EventPublisher, pageSize int, log logger.Logger) *Experience {
	spec := collection.Spec[profile.ExperienceEntry]{
		Field:   profile.FieldExperience,
		Extract: func(d *profile.Document) []profile.ExperienceEntry { return d.Experience },
		Key:     func(e profile.ExperienceEntry) string { return e.ID },
		WithKey: func(e profile.ExperienceEntry, id string) profile.ExperienceEntry { e.ID = id; return e },
	}
	validate := func(e profile.ExperienceEntry, _ string, _ []profile.ExperienceEntry) error { return e.Validate() }
	return NewController(collection.NewSync(spec, store, publisher, log), validate, pageSize, log)
}

// NewCertification accepts any form, including an empty one.
func NewCertification(store profile.Store, publisher service.EventPublisher, pageSize int, log logger.Logger) *Certifications {
	spec := collection.Spec[profile.CertificationEntry]{
		Field:   profile.FieldCertifications,
		Extract: func(d *profile.Document) []profile.CertificationEntry { return d.Certifications },
		Key:     func(e profile.CertificationEntry) string { return e.ID },
		WithKey: func(e profile.CertificationEntry, id string) profile.CertificationEntry { e.ID = id; return e },
	}
	return NewController(collection.NewSync(spec, store, publisher, log), nil, pageSize, log)
}

// NewSkills manages the skills set. A skill is its own key.
func NewSkills(store profile.Store, publisher service.EventPublisher, pageSize int, log logger.Logger) *Skills {
	spec := collection.Spec[string]{
		Field:   profile.FieldSkills,
		Extract: func(d *profile.Document) []string { return d.Skills },
		Key:     func(s string) string { return s },
	}
	return NewController(collection.NewSync(spec, store, publisher, log), validateSkill, pageSize, log)
}

// validateSkill ignores the skill being renamed so that saving it unchanged is allowed.
func validateSkill(skill, editKey string, items []string) error {
	if editKey != "" {
		items = slices.DeleteFunc(slices.Clone(items), func(s string) bool { return s == editKey })
	}
	return profile.ValidateSkill(skill, items)
}
