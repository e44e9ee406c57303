package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLM implements Service by prompting a Generator.
type LLM struct {
	gen      Generator
	log      *slog.Logger
	maxChars int
}

var _ Service = (*LLM)(nil)

func NewLLM(gen Generator, log *slog.Logger) *LLM {
	return &LLM{gen: gen, log: logger.OrDefault(log), maxChars: 6000}
}

func (l *LLM) Classify(ctx context.Context, text string) (news.Category, error) {
	prompt := fmt.Sprintf(`Analyze the following Sinhala news content and classify it into one of these categories:
%s.

Only respond with the category name. Do not include any additional text.

Sinhala news content: %s`, categoryList(), l.clip(text))

	raw, err := l.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return ParseCategoryResponse(raw)
}

func (l *LLM) Cluster(ctx context.Context, titles []string) ([]TitleTag, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	listed, err := json.Marshal(titles)
	if err != nil {
		return nil, fmt.Errorf("cluster: encode titles: %w", err)
	}

	prompt := fmt.Sprintf(`You are given a JSON list of Sinhala news article titles extracted from various news websites:

%s

Cluster these titles by semantic similarity.
- Titles with similar or identical meanings get the same group id ("group_1", "group_2", ...).
- A title that does not clearly match any other title gets the group "unique".
- Do not force unrelated titles into the same group.
- Copy every title exactly as given.

Respond with a JSON array only, one entry per input title, no extra text:
[{"title": "<title>", "group": "group_1"}, {"title": "<title>", "group": "unique"}]`, listed)

	raw, err := l.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	tags, err := ParseClusterResponse(raw)
	if err != nil {
		l.log.Debug("unparsable cluster response", "response", raw)
		return nil, fmt.Errorf("cluster: %w", err)
	}
	return tags, nil
}

func (l *LLM) Summarize(ctx context.Context, text string, mode Mode) (string, error) {
	var instruction string
	switch mode {
	case Short:
		instruction = "Summarize the following news in 2-3 sentences."
	case Long:
		instruction = "Write a detailed summary of the following news in one well-formed paragraph covering who, what, when, where and why."
	default:
		return "", fmt.Errorf("summarize: unknown mode %q", mode)
	}

	prompt := fmt.Sprintf(`%s The summary must be in the language of the text, which is Sinhala.
Return only the summary.

%s`, instruction, l.clip(text))

	out, err := l.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", mode, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("summarize %s: %w: empty answer", mode, ErrMalformedResponse)
	}
	return out, nil
}

func (l *LLM) FeatureArticle(ctx context.Context, category news.Category, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", fmt.Errorf("feature article %s: no summaries", category)
	}

	prompt := fmt.Sprintf(`'%s' ප්‍රවර්ගයට අයත්, මෙම සතියේ සටහන් වූ සියලුම ප්‍රවෘත්ති විෂයයන් සවිස්තරව විශ්ලේෂණය කරමින්,
විශ්වාසනීය සහ සාක්ෂාත්මක තොරතුරු මත පදනම්ව විශේෂාංග ලිපියක් (feature article) රචනා කරන්න.
පසුබිම (background), වත්මන් තත්වය (current situation), බලපෑම් (impacts) සහ භාවි ප්‍රවණතා (future trends)
ඒකාබද්ධ කරමින්, එය පැහැදිලි, නිවැරදි ව්‍යාකරණ සහිත තනි පරිච්ඡේදයකින් (single paragraph) සකස් කරන්න.

ලිපිය ලියිය යුත්තේ සිංහල භාෂාවෙන් පමණි (Sinhala language only).
භාවිතා කළ යුතු පෙළ:

%s`, category, l.clip(strings.Join(texts, "\n\n")))

	out, err := l.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("feature article %s: %w", category, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("feature article %s: %w: empty answer", category, ErrMalformedResponse)
	}
	return out, nil
}

// clip bounds prompt input on a rune boundary, preferring to end on a sentence.
func (l *LLM) clip(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	if l.maxChars <= 0 || utf8.RuneCountInString(text) <= l.maxChars {
		return text
	}
	runes := []rune(text)
	trimmed := string(runes[:l.maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > len(trimmed)/5 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "\n[TRUNCATED]"
}

func categoryList() string {
	cats := news.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
