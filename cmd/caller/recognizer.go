package main

import (
	"context"
	"strings"

	"callinvite/internal/app/caption"
)

// lineRecognizer treats every typed line as one finished utterance.
// Each Listen session waits for a single line, mirroring a speech engine that
// stops after its first final result.
type lineRecognizer struct {
	lines <-chan string
}

func (l lineRecognizer) Listen(ctx context.Context, emit func(caption.Transcript)) error {
	select {
	case line, ok := <-l.lines:
		if !ok {
			<-ctx.Done()
			return ctx.Err()
		}
		emit(caption.Transcript{Text: line, IsFinal: true})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type commandKind int

const (
	commandSpeak commandKind = iota
	commandReact
	commandLang
	commandQuit
	commandHelp
)

type command struct {
	kind commandKind
	arg  string
}

// parseCommand interprets one line of input. Lines without a leading slash are speech.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: commandSpeak, arg: line}
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "react", "r":
		return command{kind: commandReact, arg: arg}
	case "lang", "l":
		return command{kind: commandLang, arg: arg}
	case "quit", "q", "exit":
		return command{kind: commandQuit}
	default:
		return command{kind: commandHelp}
	}
}
