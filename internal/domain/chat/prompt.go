package chat

import (
	"strings"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
)

const (
	// notFoundMessage is returned in direct mode when nothing relevant exists.
	notFoundMessage = "متاسفانه پاسخی برای سوال شما یافت نشد. لطفا سوال خود را به شکل دیگری مطرح کنید."

	// noContextPlaceholder stands in for the grounding block when retrieval
	// came back empty in generative mode.
	noContextPlaceholder = "هیچ زمینه مرتبطی یافت نشد."

	// answerSeparator joins stored answers in direct mode.
	answerSeparator = "\n\n---\n\n"

	contextSeparator = "\n---\n"
)

const systemInstruction = `تو «همیار» هستی، دستیار پشتیبانی مشتریان شرکت همیار.
فقط و فقط بر اساس زمینه ارائه‌شده به سوال کاربر پاسخ بده.
اگر اطلاعات زمینه برای پاسخ کافی نیست، صادقانه بگو که اطلاعات کافی نداری و از حدس زدن خودداری کن.
همیشه به زبان فارسی پاسخ بده.`

// buildContext formats retrieved entries as paired question/answer blocks.
func buildContext(entries []knowledge.Entry) string {
	if len(entries) == 0 {
		return noContextPlaceholder
	}
	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		blocks = append(blocks, "سوال: "+entry.Question+"\nپاسخ: "+entry.Answer)
	}
	return strings.Join(blocks, contextSeparator)
}

// buildPrompt combines grounding context with the user question.
func buildPrompt(contextBlock, question string) string {
	var b strings.Builder
	b.WriteString("زمینه:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nسوال کاربر: ")
	b.WriteString(question)
	return b.String()
}

// joinAnswers concatenates stored answers with a visible separator.
func joinAnswers(entries []knowledge.Entry) string {
	answers := make([]string, 0, len(entries))
	for _, entry := range entries {
		answers = append(answers, entry.Answer)
	}
	return strings.Join(answers, answerSeparator)
}
