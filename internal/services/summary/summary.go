// Package summary produces the analysis panel's static summary and the
// templated chat replies.
//
// Nothing here reads the document's meaning: the summary text and every
// reply are template substitutions over the document name, the question
// and the real metadata. Strings come from a small per-locale catalog;
// English is the default; Russian is the extension's first UI language.
package summary

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

// phrases holds every user-visible string for one locale.
type phrases struct {
	title       string
	content     string // %s = document name
	keyPoints   []string
	reply       string // %s = question, %s = document name
	readingTime func(minutes int) string
}

var (
	supported = []language.Tag{language.English, language.Russian}
	matcher   = language.NewMatcher(supported)

	catalogs = map[language.Tag]phrases{
		language.English: {
			title:   "Document analysis",
			content: `Detailed summary of "%s". The document covers data analysis methods and modern approaches to information processing. Key topics include machine learning, statistical analysis and practical applications.`,
			keyPoints: []string{
				"Introduction to data analysis methods",
				"Statistical approaches and their use",
				"Machine learning in current research",
				"Practical recommendations and conclusions",
			},
			reply: `I looked at your question "%s" in the context of the document "%s". Based on the PDF content, here is what I can tell you...`,
			readingTime: func(m int) string {
				switch {
				case m <= 0:
					return "less than a minute"
				case m == 1:
					return "1 minute"
				default:
					return fmt.Sprintf("%d minutes", m)
				}
			},
		},
		language.Russian: {
			title:   "Анализ документа",
			content: `Подробное резюме статьи "%s". Документ содержит важную информацию о методах анализа данных и современных подходах к обработке информации. Ключевые темы включают машинное обучение, статистический анализ и практические применения.`,
			keyPoints: []string{
				"Введение в методы анализа данных",
				"Статистические подходы и их применение",
				"Машинное обучение в современных исследованиях",
				"Практические рекомендации и выводы",
			},
			reply: `Я проанализировал ваш вопрос "%s" в контексте документа "%s". Согласно содержанию PDF, могу предоставить следующую информацию...`,
			readingTime: func(m int) string {
				if m <= 0 {
					return "меньше минуты"
				}
				return fmt.Sprintf("%d %s", m, russianMinutes(m))
			},
		},
	}
)

// Catalog renders summaries and replies in one locale.
type Catalog struct {
	tag     language.Tag
	phrases phrases
}

// NewCatalog picks the best supported locale for a BCP 47 tag or an
// Accept-Language style list ("ru-RU,ru;q=0.9,en;q=0.8"). Anything
// unparseable or unsupported falls back to English.
func NewCatalog(locale string) *Catalog {
	tag := language.English
	if tags, _, err := language.ParseAcceptLanguage(locale); err == nil && len(tags) > 0 {
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Catalog{tag: tag, phrases: catalogs[tag]}
}

// Locale returns the selected locale tag, e.g. "en" or "ru".
func (c *Catalog) Locale() string {
	return c.tag.String()
}

// Build returns the summary for a document. meta may be nil while text
// extraction is still running; the counts are then zero.
func (c *Catalog) Build(documentName string, meta *models.DocumentMetadata) *models.Summary {
	s := &models.Summary{
		Title:     c.phrases.title,
		Content:   fmt.Sprintf(c.phrases.content, documentName),
		KeyPoints: append([]string(nil), c.phrases.keyPoints...),
	}
	minutes := 0
	if meta != nil {
		s.PageCount = meta.PageCount
		s.WordCount = meta.WordCount
		minutes = meta.ReadingTimeMinutes
	}
	s.ReadingTime = c.phrases.readingTime(minutes)
	return s
}

// Reply is the synthetic assistant answer to question about documentName.
// The result depends only on its inputs.
func (c *Catalog) Reply(question, documentName string) string {
	return fmt.Sprintf(c.phrases.reply, strings.TrimSpace(question), documentName)
}

// ReadingTime formats a minute count for display.
func (c *Catalog) ReadingTime(minutes int) string {
	return c.phrases.readingTime(minutes)
}

// russianMinutes picks the plural form: 1 минута, 2 минуты, 5 минут, 11 минут, 21 минута.
func russianMinutes(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return "минут"
	case n%10 == 1:
		return "минута"
	case n%10 >= 2 && n%10 <= 4:
		return "минуты"
	default:
		return "минут"
	}
}
