package prompt

import (
	"articlebrief/internal/domain"
	"articlebrief/internal/markdown"
	"fmt"
	"strings"
)

const (
	summarizeInstructions = `Write a summary of the article below. Structure it into four sections:

1. Summary: an overview of the article.
2. Thesis and supporting evidence: the main claim and what backs it up.
3. Context: how the article fits into the broader discussion of its topic.
4. Rating: rate the article from 1 to 10 and focus on areas for improvement.

Format the response with Markdown for readability.`

	answerInstructions = `You are helping a reader with questions about an article.
Answer the question clearly and concisely using only the information in the article below.
If the article does not contain the information needed to answer, say so explicitly.
Format the response in Markdown.`
)

type Input struct {
	Mode     domain.Mode
	Article  domain.Article
	Question string
}

// Prompt is the single instruction string sent to the model.
type Prompt struct {
	Mode domain.Mode
	Text string
}

// Build is pure: the same input always produces the same prompt.
func Build(in Input) (Prompt, error) {
	text := strings.TrimSpace(in.Article.Text)
	if text == "" {
		return Prompt{}, domain.NewError(domain.ErrorValidation, "article text is empty", nil)
	}

	var b strings.Builder

	switch in.Mode {
	case domain.ModeSummarize:
		b.WriteString(summarizeInstructions)
		b.WriteString("\n\n")
		writeArticle(&b, in.Article.Title, text)
	case domain.ModeAnswer:
		question := strings.TrimSpace(in.Question)
		if question == "" {
			return Prompt{}, domain.NewError(domain.ErrorValidation, "question is required", nil)
		}

		b.WriteString(answerInstructions)
		b.WriteString("\n\n")
		writeArticle(&b, in.Article.Title, text)
		b.WriteString("\n\nQuestion: ")
		b.WriteString(question)
	default:
		return Prompt{}, domain.NewError(domain.ErrorValidation,
			fmt.Sprintf("unknown mode %q", in.Mode), nil)
	}

	return Prompt{Mode: in.Mode, Text: b.String()}, nil
}

func writeArticle(b *strings.Builder, title string, text string) {
	if title = strings.TrimSpace(title); title != "" {
		b.WriteString("Title: ")
		b.WriteString(title)
		b.WriteString("\n")
	}
	b.WriteString("Content:\n")
	b.WriteString(markdown.FencedBlock("text", text))
}
