package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"youdub/internal/logging"
	"youdub/internal/services"
	"youdub/internal/services/llm"
	"youdub/internal/workdir"
)

const summaryRepairHint = "\nSummarize the video in JSON format:\n```json\n{\"title\": \"\", \"summary\": \"\"}\n```"

var errInvalidSummary = errors.New("invalid summary")

type rawSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type translatedSummary struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Summarize produces the summary record for a video: a source-language
// {title, summary} from the descriptor and a head+tail transcript excerpt,
// then its translation together with the tags. Each phase retries up to
// SummaryRetries times; every retry appends another repair hint to the
// prompt. Exhausting either phase fails the video.
func (t *Translator) Summarize(ctx context.Context, d *workdir.Descriptor, transcript []workdir.Utterance) (workdir.Summary, error) {
	if d == nil {
		return workdir.Summary{}, services.Skip("summarize", "video descriptor missing")
	}
	source, err := t.summarizeSource(ctx, d, transcript)
	if err != nil {
		return workdir.Summary{}, err
	}
	translated, err := t.translateSummary(ctx, d, source)
	if err != nil {
		return workdir.Summary{}, err
	}
	tags := translated.Tags
	if len(tags) == 0 {
		tags = d.Tags
	}
	return workdir.Summary{
		Title:    stripTitleQuotes(translated.Title),
		Author:   d.Uploader,
		Summary:  strings.TrimSpace(translated.Summary),
		Tags:     tags,
		Language: t.opts.TargetLanguage,
	}, nil
}

func (t *Translator) summarizeSource(ctx context.Context, d *workdir.Descriptor, transcript []workdir.Utterance) (rawSummary, error) {
	texts := make([]string, 0, len(transcript))
	for _, u := range transcript {
		texts = append(texts, u.Text)
	}
	excerpt := Excerpt(strings.Join(texts, " "), t.opts.TranscriptBudget)
	info := fmt.Sprintf("Title: %q Author: %q. ", d.Title, d.Uploader)
	prompt := fmt.Sprintf("The following is the full content of the video:\n%s\n%s\n%s\nAccording to the above content, detailedly Summarize the video in JSON format:\n```json\n{\"title\": \"\", \"summary\": \"\"}\n```", info, excerpt, info)
	system := "You are an expert in the field of this video. Please summarize the video in JSON format. ```json {\"title\": \"the title of the video\", \"summary\": \"the summary of the video\"} ```"

	hint := ""
	var lastErr error
	for attempt := 1; attempt <= t.opts.SummaryRetries; attempt++ {
		reply, err := t.chat.Chat(ctx, []llm.Message{llm.System(system), llm.User(prompt + hint)})
		if err == nil {
			var parsed rawSummary
			parsed, err = parseSourceSummary(reply)
			if err == nil {
				return parsed, nil
			}
		}
		if fatal(ctx, err) {
			return rawSummary{}, err
		}
		lastErr = err
		hint += summaryRepairHint
		t.logger.Warn("summary attempt rejected",
			logging.String(logging.FieldEventType, "summary_retry"),
			logging.Int(logging.FieldAttempt, attempt),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
		if err := t.sleep(ctx, t.opts.RetryDelay); err != nil {
			return rawSummary{}, err
		}
	}
	return rawSummary{}, services.Wrap(services.ErrValidation, "summarize", "source",
		fmt.Sprintf("no usable summary after %d attempts", t.opts.SummaryRetries), lastErr)
}

func parseSourceSummary(reply string) (rawSummary, error) {
	reply = strings.ReplaceAll(reply, "\n", "")
	if strings.Contains(reply, "视频标题") {
		return rawSummary{}, fmt.Errorf("%w: reply echoes the title label", errInvalidSummary)
	}
	var parsed rawSummary
	if err := llm.DecodeJSON(reply, &parsed); err != nil {
		return rawSummary{}, fmt.Errorf("%w: %w", errInvalidSummary, err)
	}
	parsed.Title = strings.TrimSpace(strings.ReplaceAll(parsed.Title, "title:", ""))
	parsed.Summary = strings.TrimSpace(strings.ReplaceAll(parsed.Summary, "summary:", ""))
	switch {
	case parsed.Title == "" || parsed.Summary == "":
		return rawSummary{}, fmt.Errorf("%w: empty title or summary", errInvalidSummary)
	case strings.Contains(parsed.Title, "title"):
		return rawSummary{}, fmt.Errorf("%w: title repeats the field label", errInvalidSummary)
	}
	return parsed, nil
}

func (t *Translator) translateSummary(ctx context.Context, d *workdir.Descriptor, source rawSummary) (translatedSummary, error) {
	lang := t.opts.TargetLanguage
	system := fmt.Sprintf("你是一位母语为%s的资深本地化专家。请将视频的标题、摘要和标签翻译成地道的%s，确保符合中国用户的阅读习惯和搜索偏好。输出格式为 JSON。\n```json\n{\"title\": \"%s标题\", \"summary\": \"%s摘要\", \"tags\": [针对B站优化的标签列表]}\n```.", lang, lang, lang, lang)
	user := fmt.Sprintf("原标题: %q\n原摘要: %q\n原标签: %s.\n请翻译成%s，特别注意标题要吸引人。", source.Title, source.Summary, formatTags(d.Tags), lang)

	hint := ""
	var lastErr error
	for attempt := 1; attempt <= t.opts.SummaryRetries; attempt++ {
		reply, err := t.chat.Chat(ctx, []llm.Message{llm.System(system), llm.User(user + hint)})
		if err == nil {
			var parsed translatedSummary
			parsed, err = parseTranslatedSummary(reply, lang)
			if err == nil {
				return parsed, nil
			}
		}
		if fatal(ctx, err) {
			return translatedSummary{}, err
		}
		lastErr = err
		hint += fmt.Sprintf("\n只输出 JSON，标题和摘要必须是真正翻译后的内容，不要出现“%s”字样。", lang)
		t.logger.Warn("summary translation attempt rejected",
			logging.String(logging.FieldEventType, "summary_retry"),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Error(err),
		)
		if err := t.sleep(ctx, t.opts.RetryDelay); err != nil {
			return translatedSummary{}, err
		}
	}
	return translatedSummary{}, services.Wrap(services.ErrValidation, "summarize", "translate",
		fmt.Sprintf("no usable translated summary after %d attempts", t.opts.SummaryRetries), lastErr)
}

func parseTranslatedSummary(reply, lang string) (translatedSummary, error) {
	reply = strings.ReplaceAll(reply, "\n", "")
	var parsed translatedSummary
	if err := llm.DecodeJSON(reply, &parsed); err != nil {
		return parsed, fmt.Errorf("%w: %w", errInvalidSummary, err)
	}
	switch {
	case strings.TrimSpace(parsed.Title) == "" || strings.TrimSpace(parsed.Summary) == "":
		return parsed, fmt.Errorf("%w: empty translated title or summary", errInvalidSummary)
	case strings.Contains(parsed.Title, lang) || strings.Contains(parsed.Summary, lang):
		return parsed, fmt.Errorf("%w: reply still names the target language", errInvalidSummary)
	}
	return parsed, nil
}

// Excerpt bounds a transcript to budget characters by keeping the first
// budget/2 characters of its first half and the last budget/2 characters of
// its second half.
func Excerpt(transcript string, budget int) string {
	runes := []rune(transcript)
	if budget <= 0 || len(runes) <= budget {
		return transcript
	}
	mid := len(runes) / 2
	half := budget / 2
	before, after := runes[:mid], runes[mid:]
	if len(before) > half {
		before = before[:half]
	}
	if len(after) > half {
		after = after[len(after)-half:]
	}
	return string(before) + string(after)
}

var titleQuotePairs = [][2]string{
	{`"`, `"`},
	{"“", "”"},
	{"‘", "’"},
	{"'", "'"},
	{"《", "》"},
}

func stripTitleQuotes(title string) string {
	title = strings.TrimSpace(title)
	if inner, ok := unwrap(title, titleQuotePairs); ok {
		return strings.TrimSpace(inner)
	}
	return title
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = fmt.Sprintf("%q", tag)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// fatal reports whether err must end the retry loop immediately.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, services.ErrConfiguration) || errors.Is(err, context.Canceled)
}
