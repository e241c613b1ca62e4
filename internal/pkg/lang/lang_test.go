package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":        "en",
		"en":      "en",
		"es":      "es",
		"es-MX":   "es",
		"fr_CA":   "fr",
		" de ":    "de",
		"ja-JP":   "ja",
		"zh-Hans": "zh",
		"ko":      "en",
		"%%%":     "en",
	}

	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}
