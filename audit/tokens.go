package audit

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens estimates tokens with the cl100k_base encoding. The encoding
// is fetched on first use; when that fails it falls back to ~4 bytes/token.
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[AUDIT] tiktoken unavailable, using length heuristic: %v", err)
			return
		}
		encoding = enc
	})

	if encoding == nil {
		return estimateTokens(text)
	}
	return len(encoding.Encode(text, nil, nil))
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
