package bilibili

import (
	"strings"

	"youdub/internal/textutil"
	"youdub/internal/workdir"
)

const (
	maxTags      = 12
	maxTagLength = 20
	projectBlurb = "YouDub 将 YouTube 等平台上的优质视频翻译并配音成中文版本，结合语音识别、大语言模型翻译与声音克隆技术，为中文观众提供接近原声的观看体验。"
)

// Title renders the submission title.
func Title(s workdir.Summary) string {
	title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Title), "视频标题："))
	author := strings.TrimSpace(s.Author)
	if author == "" {
		return "【中配】" + title
	}
	return "【中配】" + title + " - " + author
}

// Description renders the submission description: the source title, the
// translated summary and the project blurb.
func Description(d *workdir.Descriptor, s workdir.Summary) string {
	summary := strings.NewReplacer("视频摘要：", "", "视频简介：", "").Replace(s.Summary)
	var b strings.Builder
	if d != nil && strings.TrimSpace(d.Title) != "" {
		b.WriteString(strings.TrimSpace(d.Title))
		b.WriteByte('\n')
	}
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n\n")
	b.WriteString(projectBlurb)
	return b.String()
}

// Tags renders the fixed tag frame around the summary tags, capped at 12
// tags of at most 20 characters each.
func Tags(s workdir.Summary) []string {
	candidates := []string{"YouDub", s.Author, "AI", "ChatGPT"}
	candidates = append(candidates, s.Tags...)
	candidates = append(candidates, "中文配音", "科学", "科普")

	out := make([]string, 0, maxTags)
	seen := make(map[string]struct{}, len(candidates))
	for _, tag := range candidates {
		tag = textutil.Truncate(strings.TrimSpace(tag), maxTagLength)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
