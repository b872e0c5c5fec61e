package main

import (
	"strings"

	"github.com/root4loot/framegrab/pkg/framegrab"
	"github.com/root4loot/goutils/log"
)

// parseArgs walks the arguments in order. Unknown tokens only produce a warning;
// a flag missing its value aborts the process before anything is launched.
func (cli *cli) parseArgs(args []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			cli.Quiet = true // not yet supported
		case "-v", "--verbose":
			cli.Verbose = true // not yet supported
		case "-u", "--url":
			value, ok := flagValue(args, i)
			if !ok {
				return
			}
			cli.TargetURL = value
			i++
		case "-b", "--backend":
			value, ok := flagValue(args, i)
			if !ok {
				return
			}
			cli.Options.Backend = value
			i++
		case "--debug":
			cli.Debug = true
		case "-h", "--help":
			cli.Help = true
		case "--version":
			cli.Version = true
		default:
			if strings.HasPrefix(arg, "-") {
				log.Warnf("Unrecognized argument: %s", arg)
			} else {
				log.Warnf("Unrecognized positional argument: %s", arg)
			}
		}
	}
}

// flagValue returns the token following args[i]. If there is none it logs a fatal
// error, which exits the process.
func flagValue(args []string, i int) (string, bool) {
	if i+1 >= len(args) {
		log.Fatalf("%v: missing value for %s", framegrab.ErrConfig, args[i])
		return "", false
	}
	return args[i+1], true
}
