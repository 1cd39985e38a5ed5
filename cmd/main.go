// authgate is the session gateway CLI.
//
// Commands:
//
//	serve   run the gateway in front of the application
//	login   establish a session from the terminal
//	logout  end the current session
//	status  report the current session state
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Local overrides (AUTH_ORIGIN and friends) may live in a .env file.
	_ = godotenv.Load()

	args := os.Args[1:]
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}

	switch args[0] {
	case "serve":
		runServeCommand(args[1:])
	case "login":
		runLoginCommand(args[1:])
	case "logout":
		runLogoutCommand(args[1:])
	case "status":
		runStatusCommand(args[1:])
	case "-h", "--help", "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`authgate - authentication session gateway

Usage:
  authgate serve  [-c config.yaml] [-p port] [-d]
  authgate login  [-c config.yaml] [-u username]
  authgate logout [-c config.yaml]
  authgate status [-c config.yaml]

Flags:
  -c, --config   path to the gateway config file (default: authgate.yaml)
  -p, --port     override the configured listen port
  -u, --user     username for login (prompted when omitted)
  -d, --debug    verbose logging`)
}

// setupLogging configures the global zerolog logger. Debug mode enables
// per-request guard decision logs.
func setupLogging(debug bool, out io.Writer) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
}
