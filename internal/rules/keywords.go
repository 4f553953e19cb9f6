package rules

import (
	"regexp"
	"strings"

	"github.com/granin/sample20calls/internal/transcript"
)

const lb = `(?:^|[^\p{L}\p{N}])`

var (
	greetingWords = []string{"здравствуй", "добрый день", "добрый вечер", "доброе утро"}
	companyWords  = []string{"компани", "колес", "магазин"}
	offerWords    = []string{"помочь", "помогу", "слушаю"}
	farewellWords = []string{"до свидания", "всего доброго", "хорошего дня"}
	thanksWords   = []string{"спасибо", "благодар"}
	apologyWords  = []string{"извинит", "простит", "перебив", "прерва"}
	requestWords  = []string{"можно", "как", "где", "когда", "сколько", "есть ли"}
)

var rudeWords = compileWords(
	// profanity
	"блять", "хрен", "черт", "чёрт", "ебан", "пизд",
	// harsh tone
	"отвали", "отстань", "надоел",
)

var (
	internalPhoneRe = regexp.MustCompile(`(?:офис|внутренн).*(?:телефон|номер)`)
	accessCodeRe    = regexp.MustCompile(`(?:код доступ|пароль|внутренн.*номер)`)
	operatorNameRe  = regexp.MustCompile(`(?i)зовут\s+(\p{L}+)`)
	orientationRe   = regexp.MustCompile(`(?:чем|ещё|еще)\s.{0,20}помочь|что-(?:нибудь|то)\s+(?:ещё|еще)|(?:остались|есть)\s+(?:ли\s+)?(?:ещё\s+|еще\s+)?вопрос|вам\s+удобно`)
)

func compileWords(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(lb + regexp.QuoteMeta(w))
	}
	return out
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// opening describes the structure of the operator's first turn.
type opening struct {
	greeting, company, name, offer bool
}

func parseOpening(text string) opening {
	lower := strings.ToLower(text)
	return opening{
		greeting: containsAny(lower, greetingWords),
		company:  containsAny(lower, companyWords),
		name:     strings.Contains(lower, "зовут") || strings.Contains(lower, "меня"),
		offer:    containsAny(lower, offerWords),
	}
}

func isClosing(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, thanksWords) || containsAny(lower, farewellWords)
}

func isApology(text string) bool {
	return containsAny(strings.ToLower(text), apologyWords)
}

func isRequest(text string) bool {
	return strings.Contains(text, "?") || containsAny(strings.ToLower(text), requestWords)
}

func rudeWord(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range rudeWords {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// OperatorName returns the name the operator introduces with "зовут <Name>"
// in one of the first ten utterances, or "".
func OperatorName(t *transcript.Transcript) string {
	for i, u := range t.Utterances {
		if i >= 10 {
			break
		}
		if u.Speaker != transcript.SpeakerAgent {
			continue
		}
		if m := operatorNameRe.FindStringSubmatch(u.Text); m != nil {
			return m[1]
		}
	}
	return ""
}
