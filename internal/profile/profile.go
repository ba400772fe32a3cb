// Package profile holds the read-only portfolio data the assistant answers from.
package profile

// Project is a portfolio project card.
type Project struct {
	Title string   `yaml:"title" json:"title"`
	Tags  []string `yaml:"tags" json:"tags"`
}

// Skill is a single named skill inside a category.
type Skill struct {
	Name string `yaml:"name" json:"name"`
}

// SkillCategory groups skills under a heading such as "Frontend".
type SkillCategory struct {
	Title  string  `yaml:"title" json:"title"`
	Skills []Skill `yaml:"skills" json:"skills"`
}

// Education is one degree entry.
type Education struct {
	Degree string `yaml:"degree" json:"degree"`
	School string `yaml:"school" json:"school"`
}

// Experience is one job or internship entry.
type Experience struct {
	Role    string `yaml:"role" json:"role"`
	Company string `yaml:"company" json:"company"`
	Date    string `yaml:"date" json:"date"`
}

// Contact holds the links rendered by the contact intent.
type Contact struct {
	Email    string `yaml:"email" json:"email"`
	Phone    string `yaml:"phone" json:"phone"`
	LinkedIn string `yaml:"linkedin" json:"linkedin"`
	GitHub   string `yaml:"github" json:"github"`
}

// About is the biography block.
type About struct {
	Name   string   `yaml:"name" json:"name"`
	Bio    string   `yaml:"bio" json:"bio"`
	Skills []string `yaml:"skills" json:"skills"`
}

// Profile is a complete snapshot of the portfolio data.
type Profile struct {
	About           About           `yaml:"about" json:"about"`
	Projects        []Project       `yaml:"projects" json:"projects"`
	SkillCategories []SkillCategory `yaml:"skill_categories" json:"skill_categories"`
	Education       []Education     `yaml:"education" json:"education"`
	Experience      []Experience    `yaml:"experience" json:"experience"`
	Contact         Contact         `yaml:"contact" json:"contact"`
}

// Source supplies profile snapshots. Callers must treat the returned
// profile as read-only.
type Source interface {
	Snapshot() *Profile
}

// Static serves a fixed in-memory profile.
type Static struct {
	profile *Profile
}

// NewStatic wraps p. A nil profile is served as an empty one.
func NewStatic(p *Profile) *Static {
	if p == nil {
		p = &Profile{}
	}
	return &Static{profile: p}
}

// Snapshot returns the wrapped profile.
func (s *Static) Snapshot() *Profile {
	return s.profile
}
