package openai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/synthesis"
)

// supplementaryMaxRunes caps each supplementary source in the prompt.
const supplementaryMaxRunes = 200

const systemPrompt = `You are a kind tutor helping a primary school student.
Combine the reference material below into one natural, coherent answer to the student's question.
Explain difficult terms in simple words and keep a friendly tone.
Use only the reference material; do not invent facts.`

// toneInstruction adjusts how assertive the answer should be.
func toneInstruction(level confidence.Level) string {
	switch level {
	case confidence.High:
		return "The material matches the question well. Explain confidently."
	case confidence.Medium:
		return "The material is relevant. Explain clearly, without overstating."
	case confidence.Low, confidence.VeryLow:
		return "The material may only partly match the question. Phrase the answer carefully and say what is uncertain."
	default:
		return "Answer carefully."
	}
}

// buildUserPrompt renders the primary source in full and supplementary sources truncated.
func buildUserPrompt(req *synthesis.Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Student question: %s\n\n", req.Question)

	if primary, ok := req.Primary(); ok {
		fmt.Fprintf(&b, "Primary material (score %.2f):\n", primary.Match.WeightedScore())
		fmt.Fprintf(&b, "Source: %s\n", primary.Match.Partition())
		fmt.Fprintf(&b, "Content: %s\n", formatContent(&primary.Match))
		writeRelated(&b, primary)
	}

	if supp := req.Supplementary(); len(supp) > 0 {
		b.WriteString("\nAdditional material:\n")
		for i, s := range supp {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, s.Match.Partition(),
				truncateRunes(formatContent(&s.Match), supplementaryMaxRunes))
			writeRelated(&b, s)
		}
	}

	fmt.Fprintf(&b, "\nConfidence level: %s\n", req.Verdict.Level)
	b.WriteString(toneInstruction(req.Verdict.Level))
	return b.String()
}

func writeRelated(b *strings.Builder, s synthesis.Source) {
	if s.Related.IsZero() {
		return
	}
	if s.Related.Summary != "" {
		fmt.Fprintf(b, "Related concept: %s: %s\n", s.Related.Name, s.Related.Summary)
		return
	}
	fmt.Fprintf(b, "Related concept: %s\n", s.Related.Name)
}

// formatContent renders a match payload according to its partition layout.
func formatContent(m *match.Match) string {
	attr := func(k string) string {
		v, _ := m.Attribute(k)
		return v
	}

	switch m.Partition() {
	case partition.FAQ:
		if q, a := attr("question"), attr("answer"); q != "" || a != "" {
			return fmt.Sprintf("Q: %s\nA: %s", q, a)
		}
	case partition.Glossary:
		if w := attr("word"); w != "" {
			return fmt.Sprintf("%s: %s", w, attr("explanation"))
		}
	case partition.Concept:
		if n := attr("concept_name"); n != "" {
			return fmt.Sprintf("%s: %s", n, attr("summary"))
		}
	}
	return attr("__content")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
