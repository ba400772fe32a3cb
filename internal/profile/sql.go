package profile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS about (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		bio TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS about_skills (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		position INTEGER PRIMARY KEY,
		title TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS project_tags (
		project_position INTEGER NOT NULL,
		position INTEGER NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (project_position, position)
	)`,
	`CREATE TABLE IF NOT EXISTS skill_categories (
		position INTEGER PRIMARY KEY,
		title TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS skills (
		category_position INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (category_position, position)
	)`,
	`CREATE TABLE IF NOT EXISTS education (
		position INTEGER PRIMARY KEY,
		degree TEXT NOT NULL,
		school TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS experience (
		position INTEGER PRIMARY KEY,
		role TEXT NOT NULL,
		company TEXT NOT NULL,
		date_range TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contact (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		linkedin TEXT NOT NULL,
		github TEXT NOT NULL
	)`,
}

// seedOrder lists tables children first so deletes never orphan rows.
var seedOrder = []string{
	"project_tags", "projects", "skills", "skill_categories",
	"education", "experience", "about_skills", "about", "contact",
}

// OpenSQL opens a profile database and loads it into a static snapshot.
// The connection is closed before returning; the profile never changes
// for the lifetime of the process.
func OpenSQL(ctx context.Context, driver, dsn string) (*Static, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach profile database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	p, err := Load(ctx, db)
	if err != nil {
		return nil, err
	}
	return NewStatic(p), nil
}

// SeedDSN opens the database at dsn and replaces its profile with p.
func SeedDSN(ctx context.Context, driver, dsn string, p *Profile) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open profile database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach profile database: %w", err)
	}
	return Seed(ctx, db, driver, p)
}

// Migrate creates the profile tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create profile schema: %w", err)
		}
	}
	return nil
}

// Seed replaces the stored profile with p inside a single transaction.
func Seed(ctx context.Context, db *sql.DB, driver string, p *Profile) error {
	if err := Migrate(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range seedOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	ins := func(table string, cols []string, args ...any) error {
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), placeholders(driver, len(cols)))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}

	if err := ins("about", []string{"id", "name", "bio"}, 1, p.About.Name, p.About.Bio); err != nil {
		return err
	}
	for i, s := range p.About.Skills {
		if err := ins("about_skills", []string{"position", "name"}, i, s); err != nil {
			return err
		}
	}
	for i, pr := range p.Projects {
		if err := ins("projects", []string{"position", "title"}, i, pr.Title); err != nil {
			return err
		}
		for j, tag := range pr.Tags {
			if err := ins("project_tags", []string{"project_position", "position", "tag"}, i, j, tag); err != nil {
				return err
			}
		}
	}
	for i, c := range p.SkillCategories {
		if err := ins("skill_categories", []string{"position", "title"}, i, c.Title); err != nil {
			return err
		}
		for j, s := range c.Skills {
			if err := ins("skills", []string{"category_position", "position", "name"}, i, j, s.Name); err != nil {
				return err
			}
		}
	}
	for i, e := range p.Education {
		if err := ins("education", []string{"position", "degree", "school"}, i, e.Degree, e.School); err != nil {
			return err
		}
	}
	for i, e := range p.Experience {
		if err := ins("experience", []string{"position", "role", "company", "date_range"}, i, e.Role, e.Company, e.Date); err != nil {
			return err
		}
	}
	c := p.Contact
	if err := ins("contact", []string{"id", "email", "phone", "linkedin", "github"}, 1, c.Email, c.Phone, c.LinkedIn, c.GitHub); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load reads every profile table. Empty tables yield empty collections.
func Load(ctx context.Context, db *sql.DB) (*Profile, error) {
	p := &Profile{}

	err := db.QueryRowContext(ctx, "SELECT name, bio FROM about ORDER BY id LIMIT 1").
		Scan(&p.About.Name, &p.About.Bio)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load about: %w", err)
	}

	err = db.QueryRowContext(ctx, "SELECT email, phone, linkedin, github FROM contact ORDER BY id LIMIT 1").
		Scan(&p.Contact.Email, &p.Contact.Phone, &p.Contact.LinkedIn, &p.Contact.GitHub)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}

	if err := scanRows(ctx, db, "SELECT name FROM about_skills ORDER BY position", func(rows *sql.Rows) error {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		p.About.Skills = append(p.About.Skills, s)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load about skills: %w", err)
	}

	projectIdx := map[int]int{}
	if err := scanRows(ctx, db, "SELECT position, title FROM projects ORDER BY position", func(rows *sql.Rows) error {
		var pos int
		var pr Project
		if err := rows.Scan(&pos, &pr.Title); err != nil {
			return err
		}
		projectIdx[pos] = len(p.Projects)
		p.Projects = append(p.Projects, pr)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	if err := scanRows(ctx, db, "SELECT project_position, tag FROM project_tags ORDER BY project_position, position", func(rows *sql.Rows) error {
		var pos int
		var tag string
		if err := rows.Scan(&pos, &tag); err != nil {
			return err
		}
		if i, ok := projectIdx[pos]; ok {
			p.Projects[i].Tags = append(p.Projects[i].Tags, tag)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load project tags: %w", err)
	}

	categoryIdx := map[int]int{}
	if err := scanRows(ctx, db, "SELECT position, title FROM skill_categories ORDER BY position", func(rows *sql.Rows) error {
		var pos int
		var c SkillCategory
		if err := rows.Scan(&pos, &c.Title); err != nil {
			return err
		}
		categoryIdx[pos] = len(p.SkillCategories)
		p.SkillCategories = append(p.SkillCategories, c)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load skill categories: %w", err)
	}

	if err := scanRows(ctx, db, "SELECT category_position, name FROM skills ORDER BY category_position, position", func(rows *sql.Rows) error {
		var pos int
		var s Skill
		if err := rows.Scan(&pos, &s.Name); err != nil {
			return err
		}
		if i, ok := categoryIdx[pos]; ok {
			p.SkillCategories[i].Skills = append(p.SkillCategories[i].Skills, s)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}

	if err := scanRows(ctx, db, "SELECT degree, school FROM education ORDER BY position", func(rows *sql.Rows) error {
		var e Education
		if err := rows.Scan(&e.Degree, &e.School); err != nil {
			return err
		}
		p.Education = append(p.Education, e)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load education: %w", err)
	}

	if err := scanRows(ctx, db, "SELECT role, company, date_range FROM experience ORDER BY position", func(rows *sql.Rows) error {
		var e Experience
		if err := rows.Scan(&e.Role, &e.Company, &e.Date); err != nil {
			return err
		}
		p.Experience = append(p.Experience, e)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load experience: %w", err)
	}

	return p, nil
}

func scanRows(ctx context.Context, db *sql.DB, query string, fn func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func placeholders(driver string, n int) string {
	ph := make([]string, n)
	for i := range ph {
		if driver == DriverPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return strings.Join(ph, ", ")
}
