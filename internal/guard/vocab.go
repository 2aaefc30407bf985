package guard

// Default vocabularies. Options fields left nil fall back to these.

var defaultStopwords = []string{
	"a", "an", "the", "of", "to", "in", "on", "for", "and", "or", "by",
	"with", "from", "at", "as", "is", "are", "be", "it", "its", "this",
	"that", "into", "onto", "via", "per", "vs", "not", "no", "all", "my",
	"our", "your",
}

var defaultKeepEnglish = []string{
	"id", "ok", "todo", "readme", "license", "changelog", "makefile",
	"dockerfile", "github", "gitlab", "npm", "yarn", "pnpm", "webpack",
	"vite", "eslint", "prettier", "babel", "docker", "kubernetes", "k8s",
	"react", "vue", "angular", "svelte", "node", "deno", "python", "golang",
}

// xml is left out so it reaches the oracle and gets learned.
var defaultAcronyms = []string{
	"api", "url", "uri", "http", "https", "html", "css", "scss", "js", "ts",
	"jsx", "tsx", "json", "yaml", "yml", "toml", "sql", "uuid", "ui", "ux",
	"cli", "sdk", "cpu", "gpu", "io", "os", "db", "dom", "svg", "png", "jpg",
	"jpeg", "gif", "pdf", "csv", "ssh", "tcp", "udp", "ip", "dns", "jwt",
	"oauth", "ssl", "tls", "ci", "cd", "aws", "gcp", "rpc", "grpc", "ws",
}

var localeCodes = []string{
	"en", "zh", "ja", "ko", "fr", "de", "es", "ru", "pt", "it", "ar", "nl",
	"sv", "pl", "tr", "vi", "th", "hi", "cs", "da", "fi", "el", "he", "hu",
	"nb", "ro", "uk", "ms", "hans", "hant", "cn", "tw", "hk", "us", "gb",
	"jp", "kr",
}

var buildTags = []string{
	"min", "dev", "prod", "dist", "bundle", "chunk", "esm", "cjs", "umd",
	"amd", "iife", "gz", "br", "lock", "tmp", "bak", "orig", "rc", "alpha",
	"beta", "nightly", "canary", "snapshot", "vendor", "generated", "gen",
}

var placeholders = []string{
	"index", "main", "utils", "util", "misc", "foo", "bar", "baz", "qux",
	"untitled", "placeholder", "dummy", "lorem", "ipsum", "xxx",
}

var colorWords = []string{"rgb", "rgba", "hsl", "hsla", "hex"}

// numeralMarkers make a nearby numeral meaningful ("chapter-3", "level_12").
var numeralMarkers = []string{
	"chapter", "ch", "level", "lv", "part", "stage", "step", "phase", "vol",
	"volume", "episode", "ep", "season", "lesson", "round", "unit", "week",
	"day", "grade", "book",
}

// DefaultStopwords returns the built-in stopword list.
func DefaultStopwords() []string {
	return append([]string(nil), defaultStopwords...)
}

// DefaultAcronyms returns the built-in acronym whitelist.
func DefaultAcronyms() []string {
	return append([]string(nil), defaultAcronyms...)
}

// DefaultKeepEnglish returns the built-in keep-as-English vocabulary.
func DefaultKeepEnglish() []string {
	return append([]string(nil), defaultKeepEnglish...)
}
