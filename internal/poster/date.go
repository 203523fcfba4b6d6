package poster

import (
	"time"

	"golang.org/x/text/language"

	"github.com/janisto/lostcat/internal/wizard"
)

type dateFormat struct {
	tag    language.Tag
	layout string
}

// The first entry is the fallback.
var dateFormats = []dateFormat{
	{language.AmericanEnglish, "1/2/2006"},
	{language.BritishEnglish, "02/01/2006"},
	{language.German, "2.1.2006"},
	{language.French, "02/01/2006"},
	{language.Spanish, "2/1/2006"},
	{language.Finnish, "2.1.2006"},
	{language.Japanese, "2006/1/2"},
}

var localeMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(dateFormats))
	for i, f := range dateFormats {
		tags[i] = f.tag
	}
	return language.NewMatcher(tags)
}()

// matchLocale picks the closest supported locale for a tag or an
// Accept-Language value.
func matchLocale(locale string) (int, string) {
	if locale == "" {
		return 0, dateFormats[0].tag.String()
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return 0, dateFormats[0].tag.String()
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		idx = 0
	}
	return idx, dateFormats[idx].tag.String()
}

// formatDate renders a YYYY-MM-DD date for the matched locale. Malformed input
// is returned unchanged.
func formatDate(date string, idx int) string {
	t, err := time.Parse(wizard.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(dateFormats[idx].layout)
}

// FormatDate formats a calendar date for a locale.
func FormatDate(date, locale string) string {
	idx, _ := matchLocale(locale)
	return formatDate(date, idx)
}
