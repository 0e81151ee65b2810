package service

import "fmt"

// noContextSentinel replaces an empty context so the generator is told
// explicitly that nothing was found instead of receiving a blank string.
const noContextSentinel = "Контекст не найден"

// emptyAnswerFallback is returned when the provider produces no content.
const emptyAnswerFallback = "Извините, не удалось сформировать ответ."

// defaultSourceTitle labels citations whose source carries no title.
const defaultSourceTitle = "База знаний"

const systemPromptTemplate = `Вы - ИИ-помощник внутреннего портала микрофинансовой компании МКК ФК.

Ваша задача - помогать сотрудникам находить информацию в базе знаний компании.

ВАЖНЫЕ ПРАВИЛА:
1. Отвечайте ТОЛЬКО на основе предоставленного контекста из базы знаний
2. Если ответ не найден в контексте, честно скажите об этом
3. Не придумывайте информацию, которой нет в контексте
4. Отвечайте на русском языке
5. Будьте краткими и по делу
6. Если вопрос касается конкретной процедуры, укажите ссылку на источник

КОНТЕКСТ ИЗ БАЗЫ ЗНАНИЙ:
%s`

// buildSystemPrompt embeds the assembled grounding context into the
// assistant's behavioral instructions.
func buildSystemPrompt(context string) string {
	if context == "" {
		context = noContextSentinel
	}
	return fmt.Sprintf(systemPromptTemplate, context)
}
