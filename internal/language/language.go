package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

type entry struct {
	code2   string // ISO 639-1
	code3   string // ISO 639-2/T
	alt3    string // ISO 639-2/B when it differs
	display string
	native  string // prompt-friendly name the translation model understands
}

var languages = []entry{
	{"en", "eng", "", "English", "English"},
	{"fr", "fra", "fre", "French", "français"},
	{"es", "spa", "", "Spanish", "español"},
	{"de", "deu", "ger", "German", "Deutsch"},
	{"it", "ita", "", "Italian", "italiano"},
	{"pt", "por", "", "Portuguese", "português"},
	{"zh", "zho", "chi", "Chinese", "中文"},
	{"ja", "jpn", "", "Japanese", "日本語"},
	{"ko", "kor", "", "Korean", "한국어"},
	{"ru", "rus", "", "Russian", "русский"},
	{"ar", "ara", "", "Arabic", "العربية"},
	{"hi", "hin", "", "Hindi", "हिन्दी"},
	{"nl", "nld", "dut", "Dutch", "Nederlands"},
	{"sv", "swe", "", "Swedish", "svenska"},
	{"no", "nor", "", "Norwegian", "norsk"},
	{"da", "dan", "", "Danish", "dansk"},
	{"fi", "fin", "", "Finnish", "suomi"},
	{"pl", "pol", "", "Polish", "polski"},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byName  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byName = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		byName[strings.ToLower(e.display)] = e
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byName[code]; ok {
		return e
	}
	return nil
}

// Canonical reduces any BCP 47 tag, ISO 639 code, or English language name
// to its lowercase ISO 639-1 base ("en-US" -> "en", "pt_BR" -> "pt",
// "fre" -> "fr"). It returns "" when the input cannot be parsed.
func Canonical(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return strings.ToLower(base.String())
}

// ToISO2 converts any recognized language code or name to ISO 639-1.
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	return Canonical(code)
}

// ToISO3 converts any recognized language code to ISO 639-2, as used for
// Matroska track language tags. Returns "und" when nothing matches.
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	canonical := Canonical(code)
	if canonical == "" {
		return "und"
	}
	base, err := xlanguage.ParseBase(canonical)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromptName returns the language label used inside translation prompts. It
// falls back to the raw code so unknown languages still reach the model.
func PromptName(code string) string {
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.TrimSpace(code)
}

// IsSupported reports whether code canonicalises to one of allowed.
func IsSupported(code string, allowed []string) bool {
	canonical := Canonical(code)
	if canonical == "" {
		return false
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), canonical) {
			return true
		}
	}
	return false
}

// NormalizeList deduplicates and canonicalises a list of language codes.
// Entries that cannot be parsed are dropped.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		canonical := Canonical(code)
		if canonical == "" {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		normalized = append(normalized, canonical)
	}
	return normalized
}
