package translation

import (
	"context"
	"fmt"
	"strings"

	"youdub/internal/logging"
	"youdub/internal/services"
	"youdub/internal/services/llm"
	"youdub/internal/workdir"
)

const baseRepairHint = "Only translate the quoted sentence and give me the final translation."

// Checkpoint receives the translations accepted so far after each utterance.
type Checkpoint = func(done []string) error

// TranslateUtterances translates each utterance in order. done holds
// translations accepted by an earlier interrupted run; they are reused and
// replayed into the conversation history so the window is identical to an
// uninterrupted run. The returned slice is parallel to transcript.
func (t *Translator) TranslateUtterances(ctx context.Context, summary workdir.Summary, transcript []workdir.Utterance, done []string, checkpoint Checkpoint) ([]string, error) {
	if len(done) > len(transcript) {
		done = done[:len(transcript)]
	}
	system := t.systemPrompt(summary)
	out := make([]string, 0, len(transcript))
	var history []llm.Message
	for i, u := range transcript {
		var translated string
		if i < len(done) {
			translated = done[i]
		} else {
			var err error
			translated, err = t.translateOne(ctx, system, history, i, u.Text)
			if err != nil {
				return out, err
			}
		}
		out = append(out, translated)
		history = append(history,
			llm.User(fmt.Sprintf("Translate:%q", u.Text)),
			llm.Assistant("翻译：“"+translated+"”"),
		)
		if i >= len(done) && checkpoint != nil {
			if err := checkpoint(out); err != nil {
				return out, fmt.Errorf("checkpoint translation: %w", err)
			}
		}
		if (i+1)%10 == 0 {
			t.logger.Info("translation progress",
				logging.String(logging.FieldEventType, "translation_progress"),
				logging.Int("translated", i+1),
				logging.Int("total", len(transcript)),
			)
		}
	}
	return out, nil
}

func (t *Translator) systemPrompt(summary workdir.Summary) string {
	lang := t.opts.TargetLanguage
	return fmt.Sprintf("你是一位天才翻译家和资深配音导演。正在处理视频《%s》。摘要：%s\n\n"+
		"你的任务是将以下字幕片段翻译成地道的%s，用于后期配音。\n\n"+
		"**金律：**\n"+
		"1. **绝对不要“翻译腔”**：不要直译，要像母语者在说话。使用口语化表达。\n"+
		"2. **信达雅**：保持原意，但要转换成目标语言中对应的惯用语、成语或流行梗。\n"+
		"3. **配音适配**：控制语速和字数，确保配音时自然顺滑。\n"+
		"4. **术语统一**：专业名词要准确，不要画蛇添足（如：agent -> 智能体）。\n"+
		"5. **简洁有力**：只返回翻译后的文本，严禁带任何多余说明或转义符号。",
		summary.Title, summary.Summary, lang)
}

// window returns the trailing history messages sent with each request.
func (t *Translator) window(history []llm.Message) []llm.Message {
	n := t.opts.HistoryMessages
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func (t *Translator) translateOne(ctx context.Context, system string, history []llm.Message, index int, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	request := fmt.Sprintf("使用地道的%sTranslate:%q", t.opts.TargetLanguage, text)
	hint := ""
	lastCandidate := ""
	var lastErr error

	for attempt := 1; attempt <= t.opts.UtteranceRetries; attempt++ {
		messages := make([]llm.Message, 0, t.opts.HistoryMessages+2)
		messages = append(messages, llm.System(system))
		messages = append(messages, t.window(history)...)
		content := request
		if hint != "" {
			content += "\n" + hint
		}
		messages = append(messages, llm.User(content))

		reply, err := t.chat.Chat(ctx, messages)
		if err != nil {
			if fatal(ctx, err) {
				return "", err
			}
			lastErr = err
			t.logger.Warn("translation request failed",
				logging.String(logging.FieldEventType, "translation_retry"),
				logging.Int("utterance", index),
				logging.Int(logging.FieldAttempt, attempt),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
			)
		} else {
			ok, result := t.gate.Check(text, reply)
			if ok {
				accepted := t.applyTerms(result)
				t.logger.Debug("utterance translated",
					logging.Int("utterance", index),
					logging.String("original", text),
					logging.String("translation", accepted),
				)
				return accepted, nil
			}
			lastCandidate = StripWrappers(reply)
			lastErr = fmt.Errorf("%w: %s", services.ErrValidation, result)
			if hint == "" {
				hint = baseRepairHint
			}
			hint += " " + result
			t.logger.Debug("translation rejected",
				logging.Int("utterance", index),
				logging.Int(logging.FieldAttempt, attempt),
				logging.String("reason", result),
				logging.String("candidate", reply),
			)
		}
		if attempt < t.opts.UtteranceRetries {
			if err := t.sleep(ctx, t.opts.RetryDelay); err != nil {
				return "", err
			}
		}
	}

	if t.opts.FallbackToLastCandidate && lastCandidate != "" {
		t.logger.Warn("using last rejected candidate",
			logging.String(logging.FieldEventType, "translation_fallback"),
			logging.Int("utterance", index),
			logging.String("candidate", lastCandidate),
		)
		return t.applyTerms(Postprocess(lastCandidate)), nil
	}
	return "", services.Wrap(services.ErrValidation, "translate", "utterance",
		fmt.Sprintf("utterance %d not translated after %d attempts", index, t.opts.UtteranceRetries), lastErr)
}
