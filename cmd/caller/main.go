/*
Package main is a terminal client for the call invite server.

It resolves an invite (or takes a room name), fetches an access token, joins the
room's relay and prints the caption and reaction boards as they change. Typed
lines are published as captions; lines starting with a slash are commands
(/react, /lang, /quit).
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"callinvite/internal/app/call"
	"callinvite/internal/app/caption"
	"callinvite/internal/app/reaction"
	"callinvite/internal/app/relay"
	"callinvite/internal/app/translate"
	"callinvite/internal/pkg/lang"
	"callinvite/internal/pkg/logx"
)

type options struct {
	server           string
	invite           string
	room             string
	identity         string
	name             string
	lang             string
	langSet          bool
	translateURL     string
	translateURLSet  bool
	translateTimeout time.Duration
	debug            bool
}

func main() {
	var opts options
	pflag.StringVarP(&opts.server, "server", "s", "http://localhost:8080", "call invite server base URL")
	pflag.StringVar(&opts.invite, "invite", "", "invite token; the room and caption language come from the invite")
	pflag.StringVarP(&opts.room, "room", "r", "", "room to join when no invite is given")
	pflag.StringVarP(&opts.identity, "identity", "i", "", "participant identity, defaults to a random user-xxxxxx")
	pflag.StringVarP(&opts.name, "name", "n", "", "display name, defaults to identity")
	pflag.StringVarP(&opts.lang, "lang", "l", lang.Default, "caption language")
	pflag.StringVar(&opts.translateURL, "translate-url", translate.DefaultBaseURL, "translation service base URL, defaults to the server's")
	pflag.BoolVar(&opts.debug, "debug", false, "log debug output to stderr")
	pflag.Parse()

	opts.langSet = pflag.CommandLine.Changed("lang")
	opts.translateURLSet = pflag.CommandLine.Changed("translate-url")

	logx.InitGlobalLogger(opts.debug)

	if opts.room == "" && opts.invite == "" {
		fmt.Fprintln(os.Stderr, "--room or --invite is required")
		pflag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "caller: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	api := newAPIClient(opts.server)

	opts, err := prepare(ctx, api, opts)
	if err != nil {
		return err
	}

	token, err := api.token(ctx, opts.room, opts.identity, opts.name)
	if err != nil {
		return err
	}

	relayURL, err := relay.RelayURL(opts.server, opts.room, token)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := relay.Dial(dialCtx, relayURL)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	printer := &boardPrinter{out: out}
	view := call.NewView(conn, call.Options{
		Translator:     translate.NewClient(opts.translateURL, opts.translateTimeout),
		TargetLanguage: opts.lang,
		OnCaptions:     printer.captions,
		OnReactions:    printer.reactions,
	})
	defer view.Close()

	lines := make(chan string)
	if err := view.Start(ctx, lineRecognizer{lines: lines}); err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- view.Run(ctx, conn.Packets()) }()

	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			input <- scanner.Text()
		}
	}()

	fmt.Fprintf(out, "Joined %s as %s (captions in %s). Type to caption, /react <emoji>, /lang <code>, /quit.\n",
		opts.room, opts.identity, view.Snapshot().TargetLanguage)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-runErr:
			if relay.IsKicked(conn.Err()) {
				return errors.New("session replaced by another connection")
			}
			return err

		case line, ok := <-input:
			if !ok {
				return nil
			}

			cmd := parseCommand(line)
			switch cmd.kind {
			case commandSpeak:
				if cmd.arg == "" {
					continue
				}
				select {
				case lines <- cmd.arg:
				case <-ctx.Done():
					return ctx.Err()
				}
			case commandReact:
				emoji := cmd.arg
				if emoji == "" {
					emoji = reaction.PresetEmojis[0]
				}
				if _, err := view.SendReaction(ctx, emoji); err != nil {
					fmt.Fprintf(out, "reaction failed: %v\n", err)
				}
			case commandLang:
				fmt.Fprintf(out, "Caption language: %s\n", view.SetTargetLanguage(cmd.arg))
			case commandQuit:
				return nil
			case commandHelp:
				fmt.Fprintf(out, "Commands: /react <emoji>, /lang <%s>, /quit\n", strings.Join(languageCodes(), "|"))
			}
		}
	}
}

func languageCodes() []string {
	codes := make([]string, 0, len(lang.Supported))
	for _, o := range lang.Supported {
		codes = append(codes, o.Code)
	}
	return codes
}

// boardPrinter renders board snapshots as plain text.
type boardPrinter struct {
	out io.Writer
}

func (p *boardPrinter) captions(entries []caption.Entry) {
	var b strings.Builder
	b.WriteString("── captions ──\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s\n", e.Identity, e.Text)
	}
	_, _ = io.WriteString(p.out, b.String())
}

func (p *boardPrinter) reactions(entries []reaction.Entry) {
	if len(entries) == 0 {
		return
	}

	emojis := make([]string, 0, len(entries))
	for _, e := range entries {
		emojis = append(emojis, e.Emoji)
	}
	fmt.Fprintf(p.out, "reactions: %s\n", strings.Join(emojis, " "))
}
