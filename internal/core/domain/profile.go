package domain

import (
	"github.com/google/uuid"
)

// Profile is the subset of an alumni profile the poll pipeline reads.
type Profile struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	School         *string   `json:"school,omitempty"`
	GraduationYear *int      `json:"graduation_year,omitempty"`
	ClassName      *string   `json:"class_name,omitempty"`
	IsAdmin        bool      `json:"is_admin"`
}

// CanSee reports whether a poll's audience scope includes the profile.
func (p *Profile) CanSee(poll *Poll) bool {
	switch poll.Scope {
	case ScopeAll:
		return true
	case ScopeSchool:
		return eqString(p.School, poll.TargetSchool)
	case ScopeYear:
		return eqString(p.School, poll.TargetSchool) && eqInt(p.GraduationYear, poll.TargetYear)
	case ScopeClass:
		return eqString(p.School, poll.TargetSchool) && eqInt(p.GraduationYear, poll.TargetYear) &&
			eqString(p.ClassName, poll.TargetClass)
	}
	return false
}

func eqString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func eqInt(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}
