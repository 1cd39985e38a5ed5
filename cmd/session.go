package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/authbridge/session-gateway/internal/client"
	"github.com/authbridge/session-gateway/internal/config"
	"github.com/authbridge/session-gateway/internal/session"
)

// sessionEnv is the shared setup for the login/logout/status commands:
// config, persisted slot, store, and client, without the HTTP server.
type sessionEnv struct {
	cfg   *config.Config
	slot  *session.Slot
	store *session.Store
	auth  *client.Client
}

func newSessionEnv(configPath string) (*sessionEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var slot *session.Slot
	if cfg.SlotPath != "" {
		slot, err = session.OpenSlot(cfg.SlotPath)
		if err != nil {
			return nil, err
		}
	}

	store := session.NewStore(slot)
	return &sessionEnv{
		cfg:   cfg,
		slot:  slot,
		store: store,
		auth:  client.New(cfg, store),
	}, nil
}

func (e *sessionEnv) close() {
	if e.slot != nil {
		_ = e.slot.Close()
	}
}

// parseSessionFlags handles the flags shared by login/logout/status.
func parseSessionFlags(args []string) (configPath, user string) {
	configPath = defaultConfigPath

	i := 0
	for i < len(args) {
		switch args[i] {
		case "-h", "--help":
			printHelp()
			os.Exit(0)
		case "-c", "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --config requires a value")
				os.Exit(1)
			}
			configPath = args[i+1]
			i += 2
		case "-u", "--user":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --user requires a value")
				os.Exit(1)
			}
			user = args[i+1]
			i += 2
		case "-d", "--debug":
			setupLogging(true, os.Stderr)
			i++
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown flag %q\n", args[i])
			os.Exit(1)
		}
	}
	return configPath, user
}

// runLoginCommand prompts for credentials and establishes a session.
func runLoginCommand(args []string) {
	configPath, user := parseSessionFlags(args)

	env, err := newSessionEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	if user == "" {
		fmt.Print("Username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading username")
			os.Exit(1)
		}
		user = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error reading password")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	creds := map[string]string{"username": user, "password": string(password)}
	if _, err := env.auth.SignIn(ctx, creds, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Signed in as %s\n", user)
	if env.cfg.SlotPath != "" {
		fmt.Printf("Session persisted to %s\n", env.cfg.SlotPath)
	}
}

// runLogoutCommand ends the session. Always succeeds locally.
func runLogoutCommand(args []string) {
	configPath, _ := parseSessionFlags(args)

	env, err := newSessionEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	env.auth.SignOut(ctx)
	fmt.Println("Signed out")
}

// runStatusCommand revalidates the session once and reports the result.
func runStatusCommand(args []string) {
	configPath, _ := parseSessionFlags(args)

	env, err := newSessionEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload, err := env.auth.GetSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status unavailable: %v\n", err)
		os.Exit(1)
	}

	if payload == nil {
		fmt.Println("Not signed in")
		return
	}
	fmt.Printf("Signed in. Session payload:\n%s\n", string(payload))
}
