// Package flagx holds command-line helpers shared by the config loaders.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the subset of args made of the allowed flags and their
// values, so several independent FlagSets can parse the same command line
// without failing on each other's flags.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value joined with '=':        -config=conf.json
//
// A flag matches only under the exact spelling listed in allowedFlags, so
// "--config" must be listed to keep "--config=conf.json". A following
// argument starting with "-" is never taken as a value.
//
// Parameters:
//
//	args         - the command-line arguments, usually os.Args[1:]
//	allowedFlags - flag names to keep, e.g. []string{"-c", "-config"}
//
// Returns:
//
//	A non-nil slice holding the allowed flags in their original order,
//	each followed by its value when given as a separate argument.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "-flag=value": keep or drop as a whole
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		// "-flag value": the value is optional
		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFileFlag extracts the JSON config path given with -c or -config.
// The last occurrence wins; an empty string means no file was requested.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}

// EnvFileFlag extracts the dotenv path given with -env. It defaults to
// ".env" in the working directory.
func EnvFileFlag(args []string) string {
	path := ".env"

	fs := flag.NewFlagSet("env-file", flag.ContinueOnError)
	fs.StringVar(&path, "env", path, "Path to dotenv file")
	_ = fs.Parse(FilterArgs(args, []string{"-env"}))

	return path
}
