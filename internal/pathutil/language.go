package pathutil

import "strings"

// extensionLanguage maps a file extension to the language identifier used
// throughout the index (spec.md §4.6). Extensions that share a grammar,
// such as .cc/.cxx and .c/.h, collapse onto one language.
var extensionLanguage = map[string]string{
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".py":    "python",
	".java":  "java",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".cs":    "csharp",
	".php":   "php",
	".phtml": "php",
	".rb":    "ruby",
	".go":    "go",
	".rs":    "rust",
	".swift": "swift",
	".zig":   "zig",
}

// LanguageForExtension returns the language identifier for ext (which must
// include the leading dot), or "undefined" if ext is unrecognized.
func LanguageForExtension(ext string) string {
	if lang, ok := extensionLanguage[strings.ToLower(ext)]; ok {
		return lang
	}
	return "undefined"
}

// LanguageForPath returns the language identifier for a file path, deriving
// its extension first.
func LanguageForPath(path string) string {
	return LanguageForExtension(ExtensionOf(path))
}
