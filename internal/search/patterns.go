package search

import (
	"regexp"
	"strings"
)

// Go's \b is ASCII-only, so word edges are spelled out for Cyrillic text.
const (
	lb = `(?:^|[^\p{L}\p{N}])`
	rb = `(?:$|[^\p{L}\p{N}])`
)

var announcementPatterns = compile(
	lb+`минут[а-яё]{0,4}`,
	lb+`секунд[а-яё]{0,4}`,
	lb+`(?:сейчас|щас)\s+(?:посмотр|провер|уточн)`,
	lb+`подожд[а-яё]{0,3}`,
	lb+`(?:давайте|дайте)\s+(?:я\s+)?посмотр`,
)

var checkInPatterns = compile(
	lb+`(?:еще|ещё)\s+(?:немного|чуть-чуть|секунд|минут)`,
	lb+`(?:почти|практически)\s+(?:готов|нашел|нашёл)`,
	lb+`(?:продолжаю|ищу|смотрю)`+rb,
	`спасибо\.?\s+(?:заждание|подождите)`,
)

var answerPatterns = compile(
	lb+`(?:есть|нашел|нашёл|нашла|вижу|нашли)`+rb,
	lb+`(?:информация|данные|результат)`+rb,
	lb+`(?:размер|цена|адрес|телефон|номер)`+rb,
	`спасибо\s+за\s+ожидание`,
)

var fillerWords = map[string]bool{
	"вот": true, "так": true, "итак": true, "ну": true, "значит": true,
	"хорошо": true, "да": true, "ага": true, "угу": true, "э": true, "эм": true,
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func matchAny(res []*regexp.Regexp, lower string) bool {
	for _, re := range res {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsCheckIn reports whether text is a search continuation phrase such as
// "ещё немного" or "почти готово".
func IsCheckIn(text string) bool {
	return matchAny(checkInPatterns, strings.ToLower(text))
}

// IsAnnouncement reports whether text announces an information search. A
// check-in phrase is never an announcement.
func IsAnnouncement(text string) bool {
	lower := strings.ToLower(text)
	if matchAny(checkInPatterns, lower) {
		return false
	}
	return matchAny(announcementPatterns, lower)
}

// IsAnswer reports whether text delivers a substantive answer: it matches an
// answer-content pattern or starts with a word that is not filler.
func IsAnswer(text string) bool {
	lower := strings.ToLower(text)
	if matchAny(answerPatterns, lower) {
		return true
	}
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], ".,!?;:…-")
	return first != "" && !fillerWords[first]
}
