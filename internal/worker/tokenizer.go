package worker

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// countTokens estimates the token count of text. It prefers the cl100k_base
// tiktoken encoding (close enough across the providers this module targets)
// and falls back to a len(text)/4 approximation when the encoding can't be
// loaded (e.g. no network access to fetch its vocabulary file offline).
func countTokens(text string) int {
	if enc := cl100kEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return fallbackTokenCount(text)
}

func fallbackTokenCount(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func cl100kEncoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}
