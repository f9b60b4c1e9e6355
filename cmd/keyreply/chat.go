package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/keyreply-go/internal/adapters/renderer"
)

func newChatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		Long: `Reads one message per line from stdin and prints the paced reply.

Commands:
  /upload <name>   share a file by name (it is acknowledged, never read)
  /history         print this session's transcript
  /quit            leave

Input typed while a reply is still being delivered is ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, c)
		},
	}
}

func runChat(cmd *cobra.Command, c *cli) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := renderer.NewTerminal(cmd.OutOrStdout())
	a, err := newApp(ctx, c.cfg, c.logger, term)
	if err != nil {
		return err
	}
	defer a.Close()

	a.restarter.OnReset(func(ctx context.Context, id string) error {
		term.Notice("conversation cleared, new session " + id)
		return nil
	})
	a.watch(ctx)

	kb := a.controller.KnowledgeBase()
	term.Notice(fmt.Sprintf("%d responses loaded from %s. Type /quit to leave.", kb.Len(), kb.Source()))

	lines := readLines(ctx, cmd.InOrStdin())
	worker := newDispatcher(func(line string) {
		cmdName, arg := splitCommand(line)
		if cmdName == "/upload" {
			if arg == "" {
				term.Notice("usage: /upload <name>")
				return
			}
			a.controller.AcknowledgeFile(ctx, arg)
			return
		}
		a.controller.Handle(ctx, line)
	})
	defer worker.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmdName, _ := splitCommand(line)
			switch cmdName {
			case "/quit", "/exit":
				return nil
			case "/history":
				printHistory(ctx, a, term)
				continue
			}

			if !worker.offer(line) {
				c.logger.Debug("input dropped, reply in progress")
			}
		}
	}
}

// dispatcher handles lines one at a time on a single worker goroutine.
// Reading keeps going while a reply is delivered; lines offered meanwhile are dropped,
// so the earliest line always wins.
type dispatcher struct {
	work chan string
	busy atomic.Bool
	done chan struct{}
}

func newDispatcher(handle func(line string)) *dispatcher {
	d := &dispatcher{
		work: make(chan string),
		done: make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		for line := range d.work {
			handle(line)
			d.busy.Store(false)
		}
	}()
	return d
}

// offer hands line to the worker. It returns false, dropping the line, while the
// previous line is still being handled. Only the reading loop calls it.
func (d *dispatcher) offer(line string) bool {
	if !d.busy.CompareAndSwap(false, true) {
		return false
	}
	d.work <- line
	return true
}

// close waits for the line in hand, then stops the worker.
func (d *dispatcher) close() {
	close(d.work)
	<-d.done
}

// readLines streams lines from r until EOF or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// splitCommand returns the slash command and its argument, or "" for plain input.
func splitCommand(line string) (string, string) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return "", ""
	}
	name, arg, _ := strings.Cut(trimmed, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func printHistory(ctx context.Context, a *app, term *renderer.Terminal) {
	events, err := a.controller.History(ctx)
	if err != nil {
		term.Error(err)
		return
	}
	term.Notice(fmt.Sprintf("session %s, %d events", a.controller.SessionID(), len(events)))
	for _, e := range events {
		term.Notice(fmt.Sprintf("[%s] %s", e.Role, e.Text))
	}
}
