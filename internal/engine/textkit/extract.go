// Package textkit extracts task candidates from free text and scores
// sentiment, using small French and English keyword lexicons plus a few
// deadline phrase patterns. It stands in for a real NLP pipeline.
package textkit

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Candidate is a task suggestion pulled out of free text. Nothing is
// persisted at this stage; confirming a candidate goes through normal task
// creation.
type Candidate struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Urgency         int     `json:"urgency"`
	EstimatedEffort float64 `json:"estimated_effort"`
	Deadline        *string `json:"deadline,omitempty"`
	Confidence      float64 `json:"confidence"`
}

var actionVerbs = []string{
	"faire", "créer", "analyser", "préparer", "rédiger", "développer",
	"implémenter", "tester", "réviser", "vérifier", "envoyer", "contacter",
	"organiser", "planifier", "mettre en place", "finaliser", "compléter",
	"documenter", "présenter", "review", "valider",
	"create", "develop", "implement", "design", "write", "prepare",
	"analyze", "test", "send", "contact", "organize",
	"plan", "setup", "finalize", "complete", "document", "present",
	"validate", "update", "fix", "deploy",
}

var urgencyLevels = []struct {
	level    int
	keywords []string
}{
	{5, []string{"urgent", "asap", "immédiat", "critique", "emergency"}},
	{4, []string{"important", "prioritaire", "priority", "soon"}},
	{3, []string{"normal", "standard"}},
	{2, []string{"when possible", "si possible", "low priority"}},
	{1, []string{"someday", "eventually", "un jour"}},
}

var complexKeywords = []string{"développer", "implement", "créer", "analyze", "design"}

var simpleKeywords = []string{"envoyer", "send", "contacter", "contact", "vérifier", "check"}

var deadlinePatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`avant (?:le )?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), "date"},
	{regexp.MustCompile(`by (\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), "date"},
	{regexp.MustCompile(`pour (?:le )?(\d{1,2}[/-]\d{1,2})`), "date"},
	{regexp.MustCompile(`aujourd'hui|today`), "today"},
	{regexp.MustCompile(`demain|tomorrow`), "tomorrow"},
	{regexp.MustCompile(`cette semaine|this week`), "this_week"},
	{regexp.MustCompile(`la semaine prochaine|next week`), "next_week"},
	{regexp.MustCompile(`dans (\d+) jours?`), "in_days"},
	{regexp.MustCompile(`in (\d+) days?`), "in_days"},
}

// Section headers are matched up to the next blank line. The terminator is
// consumed rather than looked ahead; sections are separated by blank lines
// so nothing is lost.
var actionSectionREs = []*regexp.Regexp{
	regexp.MustCompile(`(?is)action items?:(.+?)(?:\n\n|\z)`),
	regexp.MustCompile(`(?is)to-?do:(.+?)(?:\n\n|\z)`),
	regexp.MustCompile(`(?is)next steps?:(.+?)(?:\n\n|\z)`),
	regexp.MustCompile(`(?is)tasks?:(.+?)(?:\n\n|\z)`),
}

var (
	spaceRE            = regexp.MustCompile(`\s+`)
	sentenceBoundaryRE = regexp.MustCompile(`[.!?\n]+`)
	actionItemRE       = regexp.MustCompile(`[\n\r]+[\s]*[-•*\d.]+[\s]+`)
)

// ExtractFromEmail pulls task candidates out of an email: every sentence
// that names an action verb, is not a question, and is long enough becomes
// a candidate.
func ExtractFromEmail(body, subject string, now time.Time) []Candidate {
	candidates := []Candidate{}
	for _, sentence := range splitSentences(subject + "\n\n" + body) {
		if !isTaskSentence(sentence) {
			continue
		}
		candidates = append(candidates, parseCandidate(sentence, now))
	}
	return candidates
}

// ExtractFromMeetingNotes pulls candidates out of meeting notes. Bulleted
// entries under an "action items" style header are taken as-is with a
// confidence boost; notes without such a section fall back to the email
// heuristics.
func ExtractFromMeetingNotes(notes, title string, now time.Time) []Candidate {
	sections := findActionSections(notes)
	if len(sections) == 0 {
		return ExtractFromEmail(notes, title, now)
	}
	candidates := []Candidate{}
	for _, section := range sections {
		for _, item := range actionItemRE.Split(section, -1) {
			item = strings.TrimSpace(item)
			if utf8.RuneCountInString(item) < 10 {
				continue
			}
			c := parseCandidate(item, now)
			c.Confidence = math.Min(c.Confidence+0.2, 1.0)
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// splitSentences cuts on sentence punctuation and newlines, then collapses
// inner whitespace. A sentence whose boundary run held a question mark
// keeps one, so the question filter downstream still sees it.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundaryRE.FindAllStringIndex(text, -1) {
		sentences = appendSentence(sentences, text[start:loc[0]], strings.Contains(text[loc[0]:loc[1]], "?"))
		start = loc[1]
	}
	return appendSentence(sentences, text[start:], false)
}

func appendSentence(sentences []string, chunk string, question bool) []string {
	s := strings.TrimSpace(spaceRE.ReplaceAllString(chunk, " "))
	if question {
		s += "?"
	}
	if utf8.RuneCountInString(s) > 10 {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTaskSentence(sentence string) bool {
	if !containsActionVerb(strings.ToLower(sentence)) {
		return false
	}
	if strings.HasSuffix(strings.TrimSpace(sentence), "?") {
		return false
	}
	return len(strings.Fields(sentence)) >= 4
}

func containsActionVerb(lower string) bool {
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

func parseCandidate(sentence string, now time.Time) Candidate {
	title := strings.TrimSpace(sentence)
	if utf8.RuneCountInString(title) > 200 {
		title = string([]rune(title)[:197]) + "..."
	}
	lower := strings.ToLower(sentence)
	urgency := detectUrgency(lower)
	deadline := detectDeadline(lower, now)
	return Candidate{
		Title:           title,
		Urgency:         urgency,
		EstimatedEffort: estimateEffort(lower),
		Deadline:        deadline,
		Confidence:      confidence(sentence, lower, urgency, deadline != nil),
	}
}

func detectUrgency(lower string) int {
	for _, band := range urgencyLevels {
		for _, kw := range band.keywords {
			if strings.Contains(lower, kw) {
				return band.level
			}
		}
	}
	return 3
}

// detectDeadline resolves the first deadline phrase found. A phrase that
// matches but does not resolve to a date means no deadline; later patterns
// are not tried.
func detectDeadline(lower string, now time.Time) *string {
	for _, p := range deadlinePatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		due, ok := resolveDeadline(p.kind, m, now)
		if !ok {
			return nil
		}
		s := due.Format(time.RFC3339)
		return &s
	}
	return nil
}

func resolveDeadline(kind string, match []string, now time.Time) (time.Time, bool) {
	switch kind {
	case "today":
		return endOfDay(now), true
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), true
	case "this_week":
		return endOfDay(now.AddDate(0, 0, daysUntilFriday(now))), true
	case "next_week":
		return endOfDay(now.AddDate(0, 0, daysUntilFriday(now)+7)), true
	case "in_days":
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, false
		}
		return endOfDay(now.AddDate(0, 0, n)), true
	case "date":
		return parseDateToken(match[1], now)
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
}

// daysUntilFriday counts days to the end of the working week, zero when now
// already is Friday, six on a Saturday.
func daysUntilFriday(t time.Time) int {
	monday := (int(t.Weekday()) + 6) % 7
	return ((4-monday)%7 + 7) % 7
}

// parseDateToken reads day-first numeric dates, with a four digit, two
// digit, or omitted year. An omitted year means the current one.
func parseDateToken(token string, now time.Time) (time.Time, bool) {
	for _, layout := range []string{"2/1/2006", "2-1-2006", "2/1/06", "2-1-06"} {
		if parsed, err := time.Parse(layout, token); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 0, 0, now.Location()), true
		}
	}
	for _, layout := range []string{"2/1", "2-1"} {
		if parsed, err := time.Parse(layout, token); err == nil {
			return time.Date(now.Year(), parsed.Month(), parsed.Day(), 23, 59, 0, 0, now.Location()), true
		}
	}
	return time.Time{}, false
}

func estimateEffort(lower string) float64 {
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return 4
		}
	}
	for _, kw := range simpleKeywords {
		if strings.Contains(lower, kw) {
			return 1
		}
	}
	return 2
}

func confidence(sentence, lower string, urgency int, hasDeadline bool) float64 {
	c := 0.5
	if containsActionVerb(lower) {
		c += 0.2
	}
	if hasDeadline {
		c += 0.15
	}
	if urgency >= 4 {
		c += 0.1
	}
	if len(strings.Fields(sentence)) > 30 {
		c -= 0.1
	}
	return math.Min(math.Max(c, 0), 1)
}

func findActionSections(text string) []string {
	var sections []string
	for _, re := range actionSectionREs {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			sections = append(sections, m[1])
		}
	}
	return sections
}
