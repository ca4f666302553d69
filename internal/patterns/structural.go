package patterns

import (
	"path"
	"regexp"
	"strings"
)

// NamingConvention is one of the six case conventions StructuralBase can
// detect and convert between.
type NamingConvention string

const (
	ConventionPascal         NamingConvention = "PascalCase"
	ConventionCamel          NamingConvention = "camelCase"
	ConventionKebab          NamingConvention = "kebab-case"
	ConventionSnake          NamingConvention = "snake_case"
	ConventionScreamingSnake NamingConvention = "SCREAMING_SNAKE_CASE"
	ConventionFlat           NamingConvention = "flatcase"
)

var conventionDetectors = []struct {
	convention NamingConvention
	matcher    *regexp.Regexp
}{
	{ConventionScreamingSnake, regexp.MustCompile(`^[A-Z0-9]+(_[A-Z0-9]+)+$`)},
	{ConventionSnake, regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)+$`)},
	{ConventionKebab, regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)+$`)},
	{ConventionPascal, regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)},
	{ConventionCamel, regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)},
}

// DetectConvention classifies a single identifier's naming convention.
// Falls back to ConventionFlat when nothing more specific matches (e.g. an
// all-lowercase identifier with no separators is ambiguous between camel
// and flat; flat is the more conservative read).
func DetectConvention(identifier string) NamingConvention {
	if identifier == "" {
		return ConventionFlat
	}
	for _, cd := range conventionDetectors {
		if cd.matcher.MatchString(identifier) {
			if cd.convention == ConventionCamel && !strings.ContainsAny(identifier, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
				continue
			}
			return cd.convention
		}
	}
	return ConventionFlat
}

// ConvertConvention rewrites an identifier's words into the target
// convention. Splitting first normalizes to a word slice regardless of
// source convention.
func ConvertConvention(identifier string, target NamingConvention) string {
	words := splitWords(identifier)
	if len(words) == 0 {
		return identifier
	}
	switch target {
	case ConventionPascal:
		return joinWords(words, "", capitalize)
	case ConventionCamel:
		out := joinWords(words, "", capitalize)
		if out == "" {
			return out
		}
		return strings.ToLower(out[:1]) + out[1:]
	case ConventionKebab:
		return strings.ToLower(strings.Join(words, "-"))
	case ConventionSnake:
		return strings.ToLower(strings.Join(words, "_"))
	case ConventionScreamingSnake:
		return strings.ToUpper(strings.Join(words, "_"))
	case ConventionFlat:
		return strings.ToLower(strings.Join(words, ""))
	default:
		return identifier
	}
}

func splitWords(identifier string) []string {
	replaced := strings.NewReplacer("-", " ", "_", " ").Replace(identifier)
	var sb strings.Builder
	runes := []rune(replaced)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				sb.WriteByte(' ')
			} else if prev >= '0' && prev <= '9' {
				sb.WriteByte(' ')
			}
		}
		sb.WriteRune(r)
	}
	fields := strings.Fields(sb.String())
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		words = append(words, strings.ToLower(f))
	}
	return words
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func joinWords(words []string, sep string, transform func(string) string) string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = transform(w)
	}
	return strings.Join(out, sep)
}

// MatchGlob matches a path against a glob supporting *, **, ?, [...], and
// brace alternatives {a,b} — the pattern vocabulary structural detectors
// use for include/exclude file selection.
func MatchGlob(pattern, candidate string) bool {
	for _, alt := range expandBraces(pattern) {
		if matchSingleGlob(alt, candidate) {
			return true
		}
	}
	return false
}

func expandBraces(pattern string) []string {
	start := strings.IndexByte(pattern, '{')
	if start < 0 {
		return []string{pattern}
	}
	end := strings.IndexByte(pattern[start:], '}')
	if end < 0 {
		return []string{pattern}
	}
	end += start
	prefix := pattern[:start]
	suffix := pattern[end+1:]
	options := strings.Split(pattern[start+1:end], ",")

	var results []string
	for _, opt := range options {
		for _, expanded := range expandBraces(prefix + opt + suffix) {
			results = append(results, expanded)
		}
	}
	return results
}

// matchSingleGlob implements *, **, ?, and [...] over path segments.
func matchSingleGlob(pattern, candidate string) bool {
	pp := strings.Split(pattern, "/")
	cp := strings.Split(candidate, "/")
	return matchSegments(pp, cp)
}

func matchSegments(pattern, candidate []string) bool {
	if len(pattern) == 0 {
		return len(candidate) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], candidate) {
			return true
		}
		if len(candidate) == 0 {
			return false
		}
		return matchSegments(pattern, candidate[1:])
	}
	if len(candidate) == 0 {
		return false
	}
	if !matchSegment(pattern[0], candidate[0]) {
		return false
	}
	return matchSegments(pattern[1:], candidate[1:])
}

func matchSegment(pattern, segment string) bool {
	ok, err := path.Match(pattern, segment)
	return err == nil && ok
}

// Classification predicates used by structural detectors.

// IsTestFile reports whether a path looks like a test file.
func IsTestFile(file string) bool {
	base := path.Base(file)
	return strings.HasSuffix(base, "_test.go") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(file, "/test/") ||
		strings.Contains(file, "/tests/") ||
		strings.Contains(file, "/__tests__/")
}

// IsTypeDefFile reports whether a path looks like a type-definition-only
// file (e.g. TypeScript .d.ts, or a conventionally named types file).
func IsTypeDefFile(file string) bool {
	base := path.Base(file)
	return strings.HasSuffix(base, ".d.ts") ||
		base == "types.go" || strings.HasSuffix(base, "_types.go")
}

// IsIndexFile reports whether a path is a package/module entrypoint file.
func IsIndexFile(file string) bool {
	base := path.Base(file)
	return base == "index.ts" || base == "index.js" || base == "mod.rs" ||
		base == "__init__.py" || base == "main.go"
}

// IsConfigFile reports whether a path looks like configuration.
func IsConfigFile(file string) bool {
	base := strings.ToLower(path.Base(file))
	for _, suffix := range []string{".json", ".yaml", ".yml", ".toml", ".env", ".config.js", ".config.ts"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// CommonBasePath returns the longest shared directory prefix of the given
// files, or "" if they share nothing.
func CommonBasePath(files []string) string {
	if len(files) == 0 {
		return ""
	}
	common := strings.Split(path.Dir(files[0]), "/")
	for _, f := range files[1:] {
		dirs := strings.Split(path.Dir(f), "/")
		common = commonPrefix(common, dirs)
		if len(common) == 0 {
			return ""
		}
	}
	return strings.Join(common, "/")
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// SiblingFiles returns every file in files that shares file's directory,
// excluding file itself.
func SiblingFiles(file string, files []string) []string {
	dir := path.Dir(file)
	var siblings []string
	for _, f := range files {
		if f != file && path.Dir(f) == dir {
			siblings = append(siblings, f)
		}
	}
	return siblings
}
