package storage

import (
	"strings"
	"unicode"

	"videoSearch/core"
)

// phraseTokens 按分词规则切分后转小写
func phraseTokens(s string) []string {
	return splitWords(strings.ToLower(s))
}

// splitWords 字母数字连续为一个词，中日文逐字成词，其余字符为分隔符
func splitWords(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case isIdeograph(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isIdeograph(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

// containsPhrase 短语的词序列在文本中连续出现
// 没有可用词的短语不匹配任何文本
func containsPhrase(text string, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	words := phraseTokens(text)
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, tok := range phrase {
			if words[i+j] != tok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// matchesPhrases 所有必选短语都至少命中一个字段（不区分大小写，按词边界）
func matchesPhrases(shot core.ScoredResult, must []core.PhraseClause) bool {
	for _, p := range must {
		tokens := phraseTokens(p.Phrase)
		hit := false
		for _, f := range p.Fields {
			if containsPhrase(fieldText(shot, f), tokens) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// filterPhrases 按短语精确过滤召回结果
func filterPhrases(hits []core.ScoredResult, must []core.PhraseClause) []core.ScoredResult {
	if len(must) == 0 {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		if matchesPhrases(h, must) {
			out = append(out, h)
		}
	}
	return out
}

// hasEmptyPhrase 存在切不出词的短语时整个查询无结果
func hasEmptyPhrase(must []core.PhraseClause) bool {
	for _, p := range must {
		if len(phraseTokens(p.Phrase)) == 0 {
			return true
		}
	}
	return false
}

// pgPhrasePattern 把词序列转换为 PostgreSQL 正则（配合 ~* 使用）
// 词只含字母数字，无需转义；中日文字之间不要求分隔符
func pgPhrasePattern(tokens []string) string {
	const sep = `[^[:alnum:]]`
	var b strings.Builder
	for i, tok := range tokens {
		ideo := isIdeographToken(tok)
		if i == 0 {
			if !ideo {
				b.WriteString(`(^|` + sep + `)`)
			}
		} else if ideo || isIdeographToken(tokens[i-1]) {
			b.WriteString(sep + `*`)
		} else {
			b.WriteString(sep + `+`)
		}
		b.WriteString(tok)
	}
	if n := len(tokens); n > 0 && !isIdeographToken(tokens[n-1]) {
		b.WriteString(`(` + sep + `|$)`)
	}
	return b.String()
}

func isIdeographToken(tok string) bool {
	for _, r := range tok {
		return isIdeograph(r)
	}
	return false
}
