/*
Package lang resolves caption language tags against the languages the call UI offers.

Matching is done with golang.org/x/text/language, so regional or script variants
("es-MX", "zh-Hant", "en_GB") collapse onto the closest supported base language.
*/
package lang

import (
	"strings"

	"golang.org/x/text/language"
)

// Default is the source language of speech recognition and the fallback caption language.
const Default = "en"

// Option is one selectable caption language.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Supported lists the caption languages in display order. The first entry is the default.
var Supported = []Option{
	{Code: "en", Label: "English"},
	{Code: "es", Label: "Español"},
	{Code: "fr", Label: "Français"},
	{Code: "de", Label: "Deutsch"},
	{Code: "it", Label: "Italiano"},
	{Code: "ja", Label: "日本語"},
	{Code: "zh", Label: "中文"},
}

var matcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, 0, len(Supported))
	for _, opt := range Supported {
		tags = append(tags, language.MustParse(opt.Code))
	}
	return tags
}

// Normalize maps tag to a supported language code.
// Blank, unparsable or unsupported tags resolve to Default.
func Normalize(tag string) string {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return Default
	}

	parsed, err := language.Parse(tag)
	if err != nil {
		return Default
	}

	_, index, confidence := matcher.Match(parsed)
	if confidence < language.High {
		return Default
	}

	return Supported[index].Code
}
