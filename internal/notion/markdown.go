package notion

import (
	"fmt"
	"strings"
)

// The Notion API rejects rich_text items longer than 2000 characters;
// stay under it the same way the web clients do.
const chunkLimit = 1800

func toRichText(text string) []richText {
	if text == "" {
		return []richText{{Type: "text", Text: &textValue{}}}
	}
	var parts []richText
	for start := 0; start < len(text); start += chunkLimit {
		end := start + chunkLimit
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, richText{Type: "text", Text: &textValue{Content: text[start:end]}})
	}
	return parts
}

func plainText(items []richText) string {
	var b strings.Builder
	for _, item := range items {
		switch {
		case item.PlainText != "":
			b.WriteString(item.PlainText)
		case item.Text != nil:
			b.WriteString(item.Text.Content)
		case item.Equation != nil:
			b.WriteString(item.Equation.Expression)
		}
	}
	return b.String()
}

// markdownToBlocks converts summary markdown into page body blocks. The
// conversion is line-oriented: headings, fenced code, bulleted and
// numbered lists, quotes, dividers and paragraphs cover the summaries
// this system writes.
func markdownToBlocks(markdown string) []block {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	var blocks []block
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		text := strings.Join(paragraph, "\n")
		paragraph = nil
		blocks = append(blocks, block{Type: "paragraph", Paragraph: &blockText{RichText: toRichText(text)}})
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()

		case strings.HasPrefix(trimmed, "```"):
			flush()
			language := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			if language == "" {
				language = "plain text"
			}
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```"); i++ {
				code = append(code, lines[i])
			}
			blocks = append(blocks, block{Type: "code", Code: &codeBlock{
				Language: language,
				RichText: toRichText(strings.Join(code, "\n")),
			}})

		case trimmed == "---" || trimmed == "***":
			flush()
			blocks = append(blocks, block{Type: "divider", Divider: &struct{}{}})

		case strings.HasPrefix(trimmed, "### "):
			flush()
			blocks = append(blocks, block{Type: "heading_3", Heading3: &blockText{RichText: toRichText(trimmed[4:])}})

		case strings.HasPrefix(trimmed, "## "):
			flush()
			blocks = append(blocks, block{Type: "heading_2", Heading2: &blockText{RichText: toRichText(trimmed[3:])}})

		case strings.HasPrefix(trimmed, "# "):
			flush()
			blocks = append(blocks, block{Type: "heading_1", Heading1: &blockText{RichText: toRichText(trimmed[2:])}})

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flush()
			blocks = append(blocks, block{Type: "bulleted_list_item", Bulleted: &blockText{RichText: toRichText(trimmed[2:])}})

		case isNumberedItem(trimmed):
			flush()
			_, rest, _ := strings.Cut(trimmed, ". ")
			blocks = append(blocks, block{Type: "numbered_list_item", Numbered: &blockText{RichText: toRichText(rest)}})

		case strings.HasPrefix(trimmed, "> "):
			flush()
			blocks = append(blocks, block{Type: "quote", Quote: &blockText{RichText: toRichText(trimmed[2:])}})

		default:
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()

	if len(blocks) == 0 {
		blocks = append(blocks, block{Type: "paragraph", Paragraph: &blockText{RichText: toRichText("No summary available.")}})
	}
	return blocks
}

func isNumberedItem(line string) bool {
	before, _, found := strings.Cut(line, ". ")
	if !found || before == "" || len(before) > 3 {
		return false
	}
	for _, r := range before {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// blocksToMarkdown renders page body blocks back into markdown so remote
// summary edits can be compared with and pulled into the local file.
func blocksToMarkdown(blocks []block) string {
	var lines []string
	numbered := 0

	for _, b := range blocks {
		if b.Archived {
			continue
		}
		if b.Type != "numbered_list_item" {
			numbered = 0
		}
		switch b.Type {
		case "heading_1":
			lines = append(lines, "# "+plainText(b.Heading1.RichText), "")
		case "heading_2":
			lines = append(lines, "## "+plainText(b.Heading2.RichText), "")
		case "heading_3":
			lines = append(lines, "### "+plainText(b.Heading3.RichText), "")
		case "bulleted_list_item":
			lines = append(lines, "- "+plainText(b.Bulleted.RichText), "")
		case "numbered_list_item":
			numbered++
			lines = append(lines, fmt.Sprintf("%d. %s", numbered, plainText(b.Numbered.RichText)), "")
		case "quote":
			lines = append(lines, "> "+plainText(b.Quote.RichText), "")
		case "code":
			language := b.Code.Language
			if language == "plain text" {
				language = ""
			}
			lines = append(lines, "```"+language, plainText(b.Code.RichText), "```", "")
		case "divider":
			lines = append(lines, "---", "")
		case "paragraph":
			if text := plainText(b.Paragraph.RichText); text != "" {
				lines = append(lines, text, "")
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
