// Package summarizer turns paper abstracts into structured Chinese
// digest reports via an OpenAI-compatible chat completion backend.
package summarizer

import (
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

// StructuredSummary is the parsed form of a generated report.
type StructuredSummary struct {
	TitleZH     string
	TitleEN     string
	Author      string
	Institution string
	Narrative   []string
	Innovations []string
	Comment     []string
}

// PaperSummary pairs a paper with its generated report. Raw keeps the
// cleaned report text for the full markdown digest; Summary is the
// structured view used by the compact channel renderers. Missing lists
// required sections the model failed to produce, empty on a complete
// report.
type PaperSummary struct {
	Paper   paper.Paper
	Raw     string
	Summary StructuredSummary
	Missing []string
}
