package profile

// Builtin returns the profile shipped with the binary.
func Builtin() *Profile {
	return &Profile{
		About: About{
			Name: "Amit Kumar Patra",
			Bio:  "Full-stack developer who enjoys turning ideas into fast, accessible web experiences.",
			Skills: []string{
				"Frontend Engineering",
				"Backend APIs",
				"UI/UX Design",
			},
		},
		Projects: []Project{
			{Title: "Portfolio Website", Tags: []string{"React", "Tailwind CSS", "Framer Motion"}},
			{Title: "Patra AI Assistant", Tags: []string{"Chatbot", "Intent Matching"}},
			{Title: "Task Tracker", Tags: []string{"Node.js", "Express", "MongoDB"}},
		},
		SkillCategories: []SkillCategory{
			{Title: "Frontend", Skills: []Skill{{Name: "HTML"}, {Name: "CSS"}, {Name: "JavaScript"}, {Name: "React"}}},
			{Title: "Backend", Skills: []Skill{{Name: "Node.js"}, {Name: "Express"}, {Name: "Go"}}},
			{Title: "Tools", Skills: []Skill{{Name: "Git"}, {Name: "GitHub"}, {Name: "VS Code"}}},
		},
		Education: []Education{
			{Degree: "Master of Computer Applications", School: "Biju Patnaik University of Technology"},
			{Degree: "Bachelor of Science", School: "Utkal University"},
		},
		Experience: []Experience{
			{Role: "Frontend Developer Intern", Company: "Tech Studio", Date: "Jan 2024 - Jun 2024"},
		},
		Contact: Contact{
			Email:    "hello@example.com",
			Phone:    "+91 00000 00000",
			LinkedIn: "https://linkedin.com/in/amitkumarpatra99",
			GitHub:   "https://github.com/amitkumarpatra99",
		},
	}
}
