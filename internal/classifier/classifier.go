// Package classifier labels a transcript with the kind of content it most
// likely is, so the summarizer can pick a matching template.
package classifier

import (
	"regexp"
	"strings"

	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

const patternBonus = 2

type rule struct {
	label    types.ContentType
	keywords []string
	patterns []*regexp.Regexp
}

// rules is ordered by tie-break precedence: the first label with the highest
// score wins.
var rules = []rule{
	{
		label: types.ContentMeeting,
		keywords: []string{
			"meeting", "rapat", "agenda", "notulen", "action item",
			"tindak lanjut", "keputusan", "peserta", "deadline", "tenggat",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(selamat|good)\s+(pagi|siang|sore|malam|morning|afternoon|evening)\b`),
		},
	},
	{
		label: types.ContentInterview,
		keywords: []string{
			"interview", "wawancara", "narasumber", "pertanyaan", "question",
			"jawaban", "answer", "kandidat", "candidate",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(pertanyaan|question)\s+(nomor\s+|number\s+|ke-?)?\d+`),
		},
	},
	{
		label: types.ContentLecture,
		keywords: []string{
			"lecture", "kuliah", "mahasiswa", "student", "dosen", "materi",
			"pelajaran", "lesson", "belajar", "learn", "teori", "theory", "ujian", "exam",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(hari ini kita akan (belajar|membahas)|today we (will|are going to) (learn|discuss|study))\b`),
		},
	},
	{
		label: types.ContentPresentation,
		keywords: []string{
			"presentation", "presentasi", "slide", "audience", "hadirin", "demo",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(slide|slaid)\s+(nomor\s+|number\s+|ke-?)?\d+`),
		},
	},
	{
		label: types.ContentDocument,
		keywords: []string{
			"dokumen", "document", "pasal", "paragraf", "paragraph", "laporan",
			"report", "halaman", "page",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(bab|chapter|section|pasal|bagian)\s+(\d+|[ivxlc]+)\b`),
		},
	},
	{
		label: types.ContentVideo,
		keywords: []string{
			"video", "subscribe", "channel", "vlog", "youtube", "konten", "tonton", "komentar",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(subscribe|like|comment|komen|share)\b`),
		},
	},
}

// Scores returns the score of every candidate label for text.
func Scores(text string) map[types.ContentType]int {
	lower := strings.ToLower(text)
	scores := make(map[types.ContentType]int, len(rules))

	for _, r := range rules {
		score := 0
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, p := range r.patterns {
			if p.MatchString(text) {
				score += patternBonus
			}
		}
		scores[r.label] = score
	}

	return scores
}

// Classify returns the label with the strictly highest score. Ties go to the
// earlier label in meeting, interview, lecture, presentation, document, video
// order; all-zero scores yield general.
func Classify(text string) types.ContentType {
	if strings.TrimSpace(text) == "" {
		return types.ContentGeneral
	}

	scores := Scores(text)
	best, bestScore := types.ContentGeneral, 0
	for _, r := range rules {
		if s := scores[r.label]; s > bestScore {
			best, bestScore = r.label, s
		}
	}

	return best
}
