package profile

import (
	"fmt"
	"slices"
)

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Profile.ProfileImageRef != nil {
		ref := *d.Profile.ProfileImageRef
		c.Profile.ProfileImageRef = &ref
	}
	c.Education = slices.Clone(d.Education)
	c.Experience = slices.Clone(d.Experience)
	c.Certifications = slices.Clone(d.Certifications)
	c.Skills = slices.Clone(d.Skills)
	return &c
}

// SetSection overwrites a whole section. items must be the section's slice type.
func (d *Document) SetSection(field Field, items any) error {
	switch field {
	case FieldEducation:
		v, ok := items.([]EducationEntry)
		if !ok {
			return typeMismatch(field, items)
		}
		d.Education = slices.Clone(v)
	case FieldExperience:
		v, ok := items.([]ExperienceEntry)
		if !ok {
			return typeMismatch(field, items)
		}
		d.Experience = slices.Clone(v)
	case FieldCertifications:
		v, ok := items.([]CertificationEntry)
		if !ok {
			return typeMismatch(field, items)
		}
		d.Certifications = slices.Clone(v)
	case FieldSkills:
		v, ok := items.([]string)
		if !ok {
			return typeMismatch(field, items)
		}
		d.Skills = slices.Clone(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// AppendUnique appends item unless an equal element is already present.
func (d *Document) AppendUnique(field Field, item any) error {
	switch field {
	case FieldEducation:
		v, ok := item.(EducationEntry)
		if !ok {
			return typeMismatch(field, item)
		}
		d.Education = appendUnique(d.Education, v)
	case FieldExperience:
		v, ok := item.(ExperienceEntry)
		if !ok {
			return typeMismatch(field, item)
		}
		d.Experience = appendUnique(d.Experience, v)
	case FieldCertifications:
		v, ok := item.(CertificationEntry)
		if !ok {
			return typeMismatch(field, item)
		}
		d.Certifications = appendUnique(d.Certifications, v)
	case FieldSkills:
		v, ok := item.(string)
		if !ok {
			return typeMismatch(field, item)
		}
		d.Skills = appendUnique(d.Skills, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// RemoveKey drops the elements whose id (or value, for skills) equals key.
func (d *Document) RemoveKey(field Field, key string) error {
	switch field {
	case FieldEducation:
		d.Education = slices.DeleteFunc(d.Education, func(e EducationEntry) bool { return e.ID == key })
	case FieldExperience:
		d.Experience = slices.DeleteFunc(d.Experience, func(e ExperienceEntry) bool { return e.ID == key })
	case FieldCertifications:
		d.Certifications = slices.DeleteFunc(d.Certifications, func(e CertificationEntry) bool { return e.ID == key })
	case FieldSkills:
		d.Skills = slices.DeleteFunc(d.Skills, func(s string) bool { return s == key })
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func appendUnique[T comparable](items []T, item T) []T {
	if slices.Contains(items, item) {
		return items
	}
	return append(items, item)
}

func typeMismatch(field Field, v any) error {
	return fmt.Errorf("profile field %q cannot hold %T", field, v)
}
