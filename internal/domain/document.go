package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	documentTitle = "# TODO List"
	footerRule    = "---"
	footerDate    = "2006-01-02"
)

var (
	headerPattern      = regexp.MustCompile(`^## (.+)$`)
	taskPattern        = regexp.MustCompile(`^- \[([ x])\] (.+)$`)
	placeholderPattern = regexp.MustCompile(`^_\((.+)\)_$`)
	slugPattern        = regexp.MustCompile(`[^a-z0-9]+`)
)

// Codec converts between the TODO.md checklist document and board columns.
type Codec struct {
	roster *Roster
	newID  func() string
	now    func() time.Time
}

// NewCodec returns a Codec that recognizes mentions of roster members.
func NewCodec(roster *Roster) *Codec {
	return &Codec{
		roster: roster,
		newID:  func() string { return "task-" + uuid.NewString() },
		now:    time.Now,
	}
}

// Slugify lowercases title and replaces every run of characters outside
// [a-z0-9] with a single hyphen. Distinct titles can share a slug.
func Slugify(title string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(title), "-")
}

// Parse reads a board document. Lines that are not a column header, a task or
// a placeholder are ignored, as are tasks and placeholders that appear before
// the first header. The result is never nil.
func (c *Codec) Parse(content string) []Column {
	columns := []Column{}
	var current *Column

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				columns = append(columns, *current)
			}
			current = &Column{ID: Slugify(m[1]), Title: m[1], Tasks: []Task{}}
			continue
		}

		if m := taskPattern.FindStringSubmatch(line); m != nil {
			if current == nil {
				continue
			}
			text, assignees, priority := DecodeTask(m[2], c.roster)
			current.Tasks = append(current.Tasks, Task{
				ID:        c.newID(),
				Done:      m[1] == "x",
				Text:      text,
				Assignees: assignees,
				Priority:  priority,
			})
			continue
		}

		if m := placeholderPattern.FindStringSubmatch(line); m != nil && current != nil {
			current.Placeholder = m[1]
		}
	}

	if current != nil {
		columns = append(columns, *current)
	}
	return columns
}

// Serialize renders columns as a board document stamped with today's date.
func (c *Codec) Serialize(columns []Column) string {
	return SerializeAt(columns, c.now())
}

// SerializeAt renders columns with a footer dated at (UTC calendar date).
func SerializeAt(columns []Column, at time.Time) string {
	var b strings.Builder
	b.WriteString(documentTitle + "\n\n")
	for _, col := range columns {
		b.WriteString("## " + col.Title + "\n")
		if len(col.Tasks) == 0 && col.Placeholder != "" {
			b.WriteString("_(" + col.Placeholder + ")_\n")
		}
		for _, t := range col.Tasks {
			if t.Done {
				b.WriteString("- [x] ")
			} else {
				b.WriteString("- [ ] ")
			}
			b.WriteString(EncodeTask(t) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(footerRule + "\n")
	b.WriteString("*Last updated: " + at.UTC().Format(footerDate) + "*\n")
	return b.String()
}
