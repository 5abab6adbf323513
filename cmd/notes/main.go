package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Ratio1/notes_sdk_go/internal/config"
	"github.com/Ratio1/notes_sdk_go/internal/logger"
	"github.com/Ratio1/notes_sdk_go/pkg/notelist"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
	"github.com/Ratio1/notes_sdk_go/pkg/notes_sdk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, logger.New("notes-cli")); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		} else if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, `notes: command line client for the notes service

Usage:
  notes [-url URL] [-env FILE] <command> [args]

Commands:
  list            print every note
  add <text>      create a note
  up <id>         upvote a note
  down <id>       downvote a note
  delete <id>     delete a note
  watch           re-print the list on every change
  shell           interactive session

Without -url the client is configured from NOTES_RUNTIME_MODE and NOTES_API_URL.`)
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer, log *logrus.Entry) error {
	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	baseURL := fs.String("url", "", "notes service base URL")
	envFile := fs.String("env", ".env", "optional dotenv file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	client, mode, err := notes_sdk.NewFromEnv(notes_sdk.WithBaseURL(*baseURL), notes_sdk.WithLogger(log))
	if err != nil {
		return err
	}
	log.WithField("mode", mode).Debug("notes client ready")

	view := notelist.NewTextView(out)
	c := notelist.New(client, view, notelist.WithLogger(log))

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "shell" {
		return shell(ctx, c, view, in, out)
	}
	return dispatch(ctx, c, view, cmd, rest)
}

func dispatch(ctx context.Context, c *notelist.Controller, view *notelist.TextView, cmd string, args []string) error {
	switch cmd {
	case "list", "ls":
		return c.LoadNotes(ctx)
	case "add":
		if len(args) == 0 {
			return errUsage
		}
		view.SetInput(strings.Join(args, " "))
		return c.Submit(ctx)
	case "up", "down":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		return c.VoteOnNote(ctx, id, notes.VoteDirection(cmd))
	case "delete", "rm":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		return c.DeleteNote(ctx, id)
	case "watch":
		if err := c.LoadNotes(ctx); err != nil {
			return err
		}
		return c.Watch(ctx)
	default:
		return errUsage
	}
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", args[0])
	}
	return id, nil
}

// shell reads one command per line. Failures are reported through the
// controller's logger and the session continues.
func shell(ctx context.Context, c *notelist.Controller, view *notelist.TextView, in io.Reader, out io.Writer) error {
	_ = c.LoadNotes(ctx)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, "commands: list | add <text> | up <id> | down <id> | delete <id> | quit")
			continue
		case "watch":
			fmt.Fprintln(out, "watch is not available inside the shell")
			continue
		}
		if err := dispatch(ctx, c, view, fields[0], fields[1:]); errors.Is(err, errUsage) {
			fmt.Fprintln(out, "unknown command, type help")
		} else if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
