// Package formatter renders parsed summaries as stable, numbered plain text.
// Each content type has a fixed section order; sections whose field is absent
// or empty are skipped and the rest are renumbered.
package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/codebuildervaibhav/audio-summarizer/internal/summarization"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// NotSpecified is printed for missing sub-fields so every block keeps its shape.
const NotSpecified = "Not specified"

var banner = strings.Repeat("=", 60)

type renderFunc func(b *strings.Builder, v any)

type section struct {
	key    string
	title  string
	render renderFunc
}

type layout struct {
	header   string
	sections []section
}

type field struct {
	key   string
	label string
}

var layouts = map[types.ContentType]layout{
	types.ContentMeeting: {
		header: "MEETING SUMMARY",
		sections: []section{
			{"meeting_info", "MEETING INFORMATION", info(
				field{"title", "Title"}, field{"date", "Date"}, field{"time", "Time"},
				field{"participants", "Participants"}, field{"location", "Location"})},
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"agenda", "AGENDA", numbered},
			{"key_points", "KEY POINTS", bullets},
			{"action_items", "ACTION ITEMS", records(
				field{"task", "Task"}, field{"owner", "Owner"}, field{"deadline", "Deadline"})},
			{"risks", "RISKS", bullets},
			{"success_metrics", "SUCCESS METRICS", bullets},
			{"next_meeting", "NEXT MEETING", info(
				field{"date", "Date"}, field{"time", "Time"}, field{"agenda", "Agenda"})},
		},
	},
	types.ContentDocument: {
		header: "DOCUMENT SUMMARY",
		sections: []section{
			{"document_info", "DOCUMENT INFORMATION", info(
				field{"title", "Title"}, field{"author", "Author"}, field{"date", "Date"}, field{"type", "Type"})},
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"main_topics", "MAIN TOPICS", numbered},
			{"key_points", "KEY POINTS", bullets},
			{"conclusions", "CONCLUSIONS", bullets},
			{"recommendations", "RECOMMENDATIONS", bullets},
		},
	},
	types.ContentPresentation: {
		header: "PRESENTATION SUMMARY",
		sections: []section{
			{"presentation_info", "PRESENTATION INFORMATION", info(
				field{"title", "Title"}, field{"presenter", "Presenter"}, field{"date", "Date"}, field{"audience", "Audience"})},
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"main_points", "MAIN POINTS", numbered},
			{"key_insights", "KEY INSIGHTS", bullets},
			{"data_highlights", "DATA HIGHLIGHTS", bullets},
			{"call_to_action", "CALL TO ACTION", paragraph},
		},
	},
	types.ContentInterview: {
		header: "INTERVIEW SUMMARY",
		sections: []section{
			{"interview_info", "INTERVIEW INFORMATION", info(
				field{"title", "Title"}, field{"interviewer", "Interviewer"}, field{"interviewee", "Interviewee"}, field{"date", "Date"})},
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"key_questions", "KEY QUESTIONS AND ANSWERS", records(
				field{"question", "Q"}, field{"answer", "A"})},
			{"insights", "INSIGHTS", bullets},
			{"notable_quotes", "NOTABLE QUOTES", quotes},
			{"follow_up", "FOLLOW UP", bullets},
		},
	},
	types.ContentLecture: {
		header: "LECTURE SUMMARY",
		sections: []section{
			{"lecture_info", "LECTURE INFORMATION", info(
				field{"title", "Title"}, field{"lecturer", "Lecturer"}, field{"subject", "Subject"}, field{"date", "Date"})},
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"learning_objectives", "LEARNING OBJECTIVES", numbered},
			{"key_concepts", "KEY CONCEPTS", records(
				field{"concept", "Concept"}, field{"explanation", "Explanation"})},
			{"examples", "EXAMPLES", bullets},
			{"summary_points", "SUMMARY POINTS", bullets},
			{"assignments", "ASSIGNMENTS", numbered},
		},
	},
	types.ContentVideo: {
		header: "VIDEO SUMMARY",
		sections: []section{
			{"video_info", "VIDEO INFORMATION", info(
				field{"title", "Title"}, field{"creator", "Creator"}, field{"topic", "Topic"})},
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"main_content", "MAIN CONTENT", numbered},
			{"key_takeaways", "KEY TAKEAWAYS", bullets},
			{"highlights", "HIGHLIGHTS", bullets},
			{"call_to_action", "CALL TO ACTION", paragraph},
		},
	},
	types.ContentGeneral: {
		header: "SUMMARY",
		sections: []section{
			{"executive_summary", "EXECUTIVE SUMMARY", paragraph},
			{"main_topics", "MAIN TOPICS", numbered},
			{"key_points", "KEY POINTS", bullets},
			{"conclusions", "CONCLUSIONS", bullets},
		},
	},
}

// Format renders r for content type ct. Text results are returned unchanged.
func Format(r summarization.Result, originalText string, ct types.ContentType, generatedAt time.Time) string {
	if !r.IsStructured() {
		return r.Content
	}

	l, ok := layouts[ct]
	if !ok {
		l = layouts[types.ContentGeneral]
		ct = types.ContentGeneral
	}

	var b strings.Builder
	b.WriteString(banner + "\n")
	b.WriteString(l.header + "\n")
	b.WriteString(banner + "\n")

	n := 0
	for _, s := range l.sections {
		v, ok := r.Fields[s.key]
		if !ok || isEmpty(v) {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n%d. %s\n", n, s.title)
		s.render(&b, v)
	}

	b.WriteString("\n" + banner + "\n")
	fmt.Fprintf(&b, "Generated at: %s\n", generatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Transcript length: %d characters\n", len(originalText))
	fmt.Fprintf(&b, "Content type: %s\n", ct)
	b.WriteString(banner + "\n")

	return b.String()
}

// Sections returns the ordered section keys of a content type.
func Sections(ct types.ContentType) []string {
	l, ok := layouts[ct]
	if !ok {
		l = layouts[types.ContentGeneral]
	}
	keys := make([]string, len(l.sections))
	for i, s := range l.sections {
		keys[i] = s.key
	}
	return keys
}

func paragraph(b *strings.Builder, v any) {
	b.WriteString("   " + text(v) + "\n")
}

func bullets(b *strings.Builder, v any) {
	for _, item := range items(v) {
		b.WriteString("   • " + text(item) + "\n")
	}
}

func numbered(b *strings.Builder, v any) {
	for i, item := range items(v) {
		fmt.Fprintf(b, "   %d. %s\n", i+1, text(item))
	}
}

func quotes(b *strings.Builder, v any) {
	for _, item := range items(v) {
		fmt.Fprintf(b, "   \"%s\"\n", text(item))
	}
}

func info(fields ...field) renderFunc {
	return func(b *strings.Builder, v any) {
		m, _ := v.(map[string]any)
		for _, f := range fields {
			fmt.Fprintf(b, "   %s: %s\n", f.label, orNotSpecified(m[f.key]))
		}
	}
}

func records(fields ...field) renderFunc {
	return func(b *strings.Builder, v any) {
		for i, item := range items(v) {
			m, ok := item.(map[string]any)
			if !ok {
				fmt.Fprintf(b, "   %d. %s\n", i+1, text(item))
				continue
			}
			for j, f := range fields {
				prefix := "      "
				if j == 0 {
					prefix = fmt.Sprintf("   %d. ", i+1)
				}
				fmt.Fprintf(b, "%s%s: %s\n", prefix, f.label, orNotSpecified(m[f.key]))
			}
		}
	}
}

// items returns the non-empty entries of a list value. A scalar is treated
// as a one-element list.
func items(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return []any{v}
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		if !isEmpty(item) {
			out = append(out, item)
		}
	}
	return out
}

func orNotSpecified(v any) string {
	if isEmpty(v) {
		return NotSpecified
	}
	return text(v)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		for _, item := range t {
			if !isEmpty(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range t {
			if !isEmpty(item) {
				return false
			}
		}
		return true
	}
	return false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if !isEmpty(item) {
				parts = append(parts, text(item))
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if !isEmpty(t[k]) {
				parts = append(parts, k+": "+text(t[k]))
			}
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}
