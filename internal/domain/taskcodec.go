package domain

import (
	"regexp"
	"strings"
)

var (
	mentionPattern  = regexp.MustCompile(`@(\w+)`)
	priorityPattern = regexp.MustCompile(`(?i)\s*!(high|medium|low)\b`)
)

// DecodeTask splits the free text of a task line into its plain text,
// recognized assignees and priority. Mentions of people outside the roster
// stay in the text untouched.
func DecodeTask(raw string, roster *Roster) (string, []string, Priority) {
	text, assignees := extractMentions(raw, roster)
	text, priority := extractPriority(text)
	return strings.Join(strings.Fields(text), " "), assignees, priority
}

func extractMentions(raw string, roster *Roster) (string, []string) {
	assignees := []string{}
	var b strings.Builder
	last := 0
	for _, loc := range mentionPattern.FindAllStringSubmatchIndex(raw, -1) {
		name := strings.ToLower(raw[loc[2]:loc[3]])
		if !roster.Has(name) {
			continue
		}
		b.WriteString(raw[last:loc[0]])
		last = loc[1]
		assignees = append(assignees, name)
	}
	b.WriteString(raw[last:])
	return b.String(), assignees
}

// extractPriority strips every priority marker; the last one wins.
func extractPriority(text string) (string, Priority) {
	matches := priorityPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, PriorityNone
	}
	p := ParsePriority(matches[len(matches)-1][1])
	return priorityPattern.ReplaceAllString(text, ""), p
}

// EncodeTask renders a task back to the inline form DecodeTask reads.
func EncodeTask(t Task) string {
	var b strings.Builder
	b.WriteString(t.Text)
	for _, a := range t.Assignees {
		b.WriteString(" @")
		b.WriteString(a)
	}
	if p := ParsePriority(string(t.Priority)); p != PriorityNone {
		b.WriteString(" !")
		b.WriteString(string(p))
	}
	return b.String()
}
