package domain

// DefaultSkillCatalog returns the global skills a fresh installation starts with.
func DefaultSkillCatalog() []GlobalSkill {
	return []GlobalSkill{
		{Name: "JavaScript", Category: "Programming Languages"},
		{Name: "TypeScript", Category: "Programming Languages"},
		{Name: "Python", Category: "Programming Languages"},
		{Name: "Go", Category: "Programming Languages"},
		{Name: "Rust", Category: "Programming Languages"},
		{Name: "PHP", Category: "Programming Languages"},
		{Name: "Java", Category: "Programming Languages"},
		{Name: "C#", Category: "Programming Languages"},

		{Name: "React", Category: "Frameworks"},
		{Name: "Vue", Category: "Frameworks"},
		{Name: "Next.js", Category: "Frameworks"},
		{Name: "Express", Category: "Frameworks"},
		{Name: "NestJS", Category: "Frameworks"},

		{Name: "MySQL", Category: "Databases"},
		{Name: "PostgreSQL", Category: "Databases"},
		{Name: "MongoDB", Category: "Databases"},
		{Name: "Redis", Category: "Databases"},
		{Name: "DynamoDB", Category: "Databases"},

		{Name: "Docker", Category: "Infrastructure"},
		{Name: "Kubernetes", Category: "Infrastructure"},
		{Name: "AWS", Category: "Infrastructure"},
		{Name: "GCP", Category: "Infrastructure"},
		{Name: "Terraform", Category: "Infrastructure"},

		{Name: "Git", Category: "Other"},
		{Name: "CI/CD", Category: "Other"},
		{Name: "Testing", Category: "Other"},
		{Name: "Design", Category: "Other"},
		{Name: "Architecture", Category: "Other"},
	}
}
