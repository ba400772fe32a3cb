package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatraChat/internal/profile"
)

func newResolver() *Resolver {
	return NewResolver(profile.NewStatic(profile.Builtin()))
}

func TestResolveIntents(t *testing.T) {
	r := newResolver()

	tests := []struct {
		input string
		want  Intent
	}{
		{"hi", Greeting},
		{"  HIII  ", Greeting},
		{"heyyy", Greeting},
		{"Hello", Greeting},
		{"hola", Greeting},
		{"hi there", Fallback},
		{"tell me about yourself", About},
		{"who is this?", About},
		{"Is Amit around?", About},
		{"show me your projects", Projects},
		{"what have you built", Projects},
		{"what are your skills?", Skills},
		{"tech stack", Skills},
		{"where did you study", Education},
		{"what degree", Education},
		{"tell me your experience", Experience},
		{"any internship?", Experience},
		{"past job", Experience},
		{"how can I contact you?", Contact},
		{"are you open to hire", Contact},
		{"github link", Contact},
		{"please clear this", Clear},
		{"what's the weather", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input).Intent)
		})
	}
}

func TestResolvePriorityProjectsBeforeContact(t *testing.T) {
	res := newResolver().Resolve("show me your project and contact info")
	assert.Equal(t, Projects, res.Intent)
}

func TestResolveClearSignal(t *testing.T) {
	res := newResolver().Resolve("clear")
	assert.True(t, res.Clear)
	assert.Empty(t, res.Text)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := newResolver()
	for _, in := range []string{"hi", "projects", "skills", "contact", "nothing"} {
		assert.Equal(t, r.Resolve(in), r.Resolve(in), in)
	}
}

func TestResolveGreetingText(t *testing.T) {
	res := newResolver().Resolve("Hi")
	assert.True(t, strings.HasPrefix(res.Text, "Hello! 👋"))
}

func TestResolveRendersProfileData(t *testing.T) {
	r := newResolver()
	p := profile.Builtin()

	projects := r.Resolve("projects").Text
	for _, pr := range p.Projects {
		assert.Contains(t, projects, "<b>"+pr.Title+"</b>")
	}
	assert.Contains(t, projects, "(React, Tailwind CSS, Framer Motion)")

	skills := r.Resolve("skills").Text
	assert.Contains(t, skills, "🚀 <b>Frontend</b><br/>HTML, CSS, JavaScript, React")

	edu := r.Resolve("education").Text
	assert.Contains(t, edu, "🎓 <b>Master of Computer Applications</b><br/>Biju Patnaik University of Technology")

	exp := r.Resolve("job").Text
	assert.Contains(t, exp, "Tech Studio (Jan 2024 - Jun 2024)")

	contact := r.Resolve("contact").Text
	assert.Contains(t, contact, `href="mailto:hello@example.com"`)
	assert.Contains(t, contact, `href="https://github.com/amitkumarpatra99"`)
}

func TestResolveEmptyProfile(t *testing.T) {
	r := NewResolver(profile.NewStatic(nil))

	for _, in := range []string{"about", "projects", "skills", "education", "job", "contact"} {
		res := r.Resolve(in)
		assert.NotEmpty(t, res.Text, in)
		assert.False(t, res.Clear, in)
	}
}

func TestResolveEscapesProfileStrings(t *testing.T) {
	p := &profile.Profile{Projects: []profile.Project{{Title: "<script>", Tags: []string{"a&b"}}}}
	res := NewResolver(profile.NewStatic(p)).Resolve("project")

	assert.NotContains(t, res.Text, "<script>")
	assert.Contains(t, res.Text, "&lt;script&gt;")
	assert.Contains(t, res.Text, "a&amp;b")
}

func TestRulesOrder(t *testing.T) {
	rules := newResolver().Rules()
	require.Len(t, rules, 8)

	var got []Intent
	for _, r := range rules {
		got = append(got, r.Intent)
	}
	assert.Equal(t, []Intent{Greeting, About, Projects, Skills, Education, Experience, Contact, Clear}, got)
}
