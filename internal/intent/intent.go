// Package intent maps free-text questions to canned portfolio answers.
package intent

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"PatraChat/internal/profile"
)

// Intent names a response category.
type Intent string

const (
	Greeting   Intent = "greeting"
	About      Intent = "about"
	Projects   Intent = "projects"
	Skills     Intent = "skills"
	Education  Intent = "education"
	Experience Intent = "experience"
	Contact    Intent = "contact"
	Clear      Intent = "clear"
	Fallback   Intent = "fallback"
)

// Result is the outcome of resolving one input. When Clear is set the
// conversation must be reset instead of answered and Text is empty.
type Result struct {
	Intent Intent
	Text   string
	Clear  bool
}

// Rule is one row of the priority table.
type Rule struct {
	Intent  Intent
	Match   func(q string, p *profile.Profile) bool
	Respond func(p *profile.Profile) Result
}

const (
	greetingReply = "Hello! 👋<br/>I can tell you about my <b>Projects</b>, <b>Skills</b>, or <b>Contact</b> info."
	fallbackReply = "🤖 I'm still learning!<br/>Try asking about <b>Projects</b>, <b>Skills</b>, <b>Experience</b>, or simply say <b>Hi</b>."
	linkStyle     = `style="color:#8b5cf6; text-decoration:underline;"`
)

var greetingPattern = regexp.MustCompile(`^(hi|hii+|hello+|hey+|hola)$`)

// Resolver evaluates the rule table against the current profile snapshot.
type Resolver struct {
	source profile.Source
	rules  []Rule
}

// NewResolver creates a resolver over source using the default rule table.
func NewResolver(source profile.Source) *Resolver {
	return &Resolver{source: source, rules: DefaultRules()}
}

// Rules returns the table in evaluation order.
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Resolve answers raw. The first matching rule wins; unmatched input gets
// the fallback reply.
func (r *Resolver) Resolve(raw string) Result {
	q := Normalize(raw)
	p := r.source.Snapshot()
	if p == nil {
		p = &profile.Profile{}
	}

	for _, rule := range r.rules {
		if rule.Match(q, p) {
			return rule.Respond(p)
		}
	}
	return Result{Intent: Fallback, Text: fallbackReply}
}

// Normalize lowercases and trims input before matching.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// DefaultRules returns the priority-ordered rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Intent: Greeting,
			Match:  func(q string, _ *profile.Profile) bool { return greetingPattern.MatchString(q) },
			Respond: func(*profile.Profile) Result {
				return Result{Intent: Greeting, Text: greetingReply}
			},
		},
		{
			Intent: About,
			Match: func(q string, p *profile.Profile) bool {
				if containsAny(q, "about", "who is", "bio") {
					return true
				}
				first := firstName(p.About.Name)
				return first != "" && strings.Contains(q, first)
			},
			Respond: respondAbout,
		},
		{
			Intent:  Projects,
			Match:   keywords("project", "work", "built"),
			Respond: respondProjects,
		},
		{
			Intent:  Skills,
			Match:   keywords("skill", "stack", "tech"),
			Respond: respondSkills,
		},
		{
			Intent:  Education,
			Match:   keywords("education", "study", "degree"),
			Respond: respondEducation,
		},
		{
			Intent:  Experience,
			Match:   keywords("experience", "job", "internship"),
			Respond: respondExperience,
		},
		{
			Intent:  Contact,
			Match:   keywords("contact", "mail", "hire", "linkedin", "github"),
			Respond: respondContact,
		},
		{
			Intent: Clear,
			Match:  keywords("clear"),
			Respond: func(*profile.Profile) Result {
				return Result{Intent: Clear, Clear: true}
			},
		},
	}
}

func keywords(words ...string) func(string, *profile.Profile) bool {
	return func(q string, _ *profile.Profile) bool {
		return containsAny(q, words...)
	}
}

func containsAny(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func firstName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func respondAbout(p *profile.Profile) Result {
	esc := escapeAll(p.About.Skills)
	text := fmt.Sprintf("👨‍💻 <b>%s</b><br/><br/>%s<br/><br/><b>Core Focus:</b><br/>%s",
		html.EscapeString(p.About.Name),
		html.EscapeString(p.About.Bio),
		strings.Join(esc, " • "))
	return Result{Intent: About, Text: text}
}

func respondProjects(p *profile.Profile) Result {
	lines := make([]string, 0, len(p.Projects))
	for _, pr := range p.Projects {
		lines = append(lines, fmt.Sprintf(`🔹 <b>%s</b> <span style="opacity:0.7">(%s)</span>`,
			html.EscapeString(pr.Title), strings.Join(escapeAll(pr.Tags), ", ")))
	}
	text := "Here are some of my recent projects:<br/><br/>" +
		strings.Join(lines, "<br/>") +
		"<br/><br/>Would you like to see more details?"
	return Result{Intent: Projects, Text: text}
}

func respondSkills(p *profile.Profile) Result {
	if len(p.SkillCategories) == 0 {
		return Result{Intent: Skills, Text: "🚀 <b>Skills</b><br/>"}
	}
	blocks := make([]string, 0, len(p.SkillCategories))
	for _, c := range p.SkillCategories {
		names := make([]string, 0, len(c.Skills))
		for _, s := range c.Skills {
			names = append(names, html.EscapeString(s.Name))
		}
		blocks = append(blocks, fmt.Sprintf("🚀 <b>%s</b><br/>%s", html.EscapeString(c.Title), strings.Join(names, ", ")))
	}
	return Result{Intent: Skills, Text: strings.Join(blocks, "<br/><br/>")}
}

func respondEducation(p *profile.Profile) Result {
	if len(p.Education) == 0 {
		return Result{Intent: Education, Text: "🎓 <b>Education</b><br/>"}
	}
	blocks := make([]string, 0, len(p.Education))
	for _, e := range p.Education {
		blocks = append(blocks, fmt.Sprintf("🎓 <b>%s</b><br/>%s", html.EscapeString(e.Degree), html.EscapeString(e.School)))
	}
	return Result{Intent: Education, Text: strings.Join(blocks, "<br/><br/>")}
}

func respondExperience(p *profile.Profile) Result {
	if len(p.Experience) == 0 {
		return Result{Intent: Experience, Text: "💼 <b>Experience</b><br/>"}
	}
	blocks := make([]string, 0, len(p.Experience))
	for _, e := range p.Experience {
		blocks = append(blocks, fmt.Sprintf("💼 <b>%s</b><br/>%s (%s)",
			html.EscapeString(e.Role), html.EscapeString(e.Company), html.EscapeString(e.Date)))
	}
	return Result{Intent: Experience, Text: strings.Join(blocks, "<br/><br/>")}
}

func respondContact(p *profile.Profile) Result {
	c := p.Contact
	email := html.EscapeString(c.Email)
	phone := html.EscapeString(c.Phone)
	var b strings.Builder
	b.WriteString("Let's connect! 🤝<br/><br/>")
	fmt.Fprintf(&b, `📧 <b>Email:</b> <a href="mailto:%s" %s>%s</a><br/>`, email, linkStyle, email)
	fmt.Fprintf(&b, `📞 <b>Phone:</b> <a href="tel:%s" %s>%s</a><br/>`, phone, linkStyle, phone)
	fmt.Fprintf(&b, `🔗 <b>LinkedIn:</b> <a href="%s" target="_blank" rel="noopener noreferrer" %s>Profile</a><br/>`,
		html.EscapeString(c.LinkedIn), linkStyle)
	fmt.Fprintf(&b, `🐙 <b>GitHub:</b> <a href="%s" target="_blank" rel="noopener noreferrer" %s>Profile</a>`,
		html.EscapeString(c.GitHub), linkStyle)
	return Result{Intent: Contact, Text: b.String()}
}

func escapeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = html.EscapeString(s)
	}
	return out
}
