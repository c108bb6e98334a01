package domain

// Mode selects what the model is asked to do with an article.
type Mode string

const (
	ModeSummarize Mode = "summarize"
	ModeAnswer    Mode = "answer"
)

type Article struct {
	URL   string
	Title string
	Text  string
}
