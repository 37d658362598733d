// Headless client for codex-temporal sessions.
//
// Usage:
//
//	client [flags] ["prompt"]
//
// Starts a session workflow seeded with the prompt and prints its workflow
// ID. By default the client exits immediately and the session keeps running
// on the server; use the TUI or -session to come back to it later.
//
// Flags:
//
//	-follow        stay attached: stream events to stdout until the session
//	               ends or Ctrl+C requests a graceful shutdown. Approval
//	               prompts are answered from stdin when it is a terminal and
//	               denied otherwise.
//	-session <id>  attach to an existing session instead of starting one
//
// Environment:
//
//	TEMPORAL_ADDRESS       Temporal server (host:port or URL)
//	CODEX_MODEL            model name (default gpt-4o)
//	CODEX_APPROVAL_POLICY  never | untrusted | on-request | on-failure
//	CODEX_WEB_SEARCH       live | cached | disabled
//	CODEX_HOME             directory holding execpolicy rules and mcp.json
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"golang.org/x/term"

	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/session"
	"github.com/mfateev/codex-temporal/internal/temporalclient"
	"github.com/mfateev/codex-temporal/internal/workflow"
)

func main() {
	follow := flag.Bool("follow", false, "stream session events until the session ends")
	sessionID := flag.String("session", "", "attach to an existing session instead of starting one")
	flag.Parse()

	opts := temporalclient.MustLoadClientOptions("", "")
	opts.Identity = "codex-temporal-client"

	c, err := client.Dial(opts)
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	prompt := flag.Arg(0)

	var sess *session.TemporalAgentSession
	if *sessionID != "" {
		sess = session.Attach(c, *sessionID)
		if prompt != "" {
			turnID, err := sess.Submit(ctx, models.Op{Type: models.OpUserTurn, Text: prompt})
			if err != nil {
				log.Fatalf("Failed to send user turn: %v", err)
			}
			log.Printf("Sent %s to session %s", turnID, sess.WorkflowID())
		}
	} else {
		if prompt == "" {
			prompt = "Hello, Codex!"
		}
		sess = session.New(c, "codex-"+uuid.NewString(), inputFromEnv())
		turnID, err := sess.Submit(ctx, models.Op{Type: models.OpUserTurn, Text: prompt})
		if err != nil {
			log.Fatalf("Failed to start session: %v", err)
		}
		log.Printf("Started session %s (%s)", sess.WorkflowID(), turnID)
	}

	fmt.Println(sess.WorkflowID())

	if !*follow {
		return
	}
	if err := followSession(sess); err != nil {
		log.Fatalf("Event stream failed: %v", err)
	}
}

// inputFromEnv assembles the workflow input for a fresh session.
func inputFromEnv() workflow.CodexWorkflowInput {
	model := os.Getenv("CODEX_MODEL")
	if model == "" {
		model = "gpt-4o"
	}

	input := workflow.CodexWorkflowInput{
		Model:          model,
		Instructions:   "You are a helpful coding assistant.",
		ApprovalPolicy: models.ParseApprovalPolicy(os.Getenv("CODEX_APPROVAL_POLICY")),
		WebSearchMode:  models.ParseWebSearchMode(os.Getenv("CODEX_WEB_SEARCH")),
	}

	if home := os.Getenv("CODEX_HOME"); home != "" {
		input.CodexHome = home
		servers, err := mcp.LoadServers(home)
		if err != nil {
			log.Fatalf("Failed to load MCP config: %v", err)
		}
		input.McpServers = servers
	}
	return input
}

// followSession streams events to stdout until the session closes. The
// first Ctrl+C requests a graceful shutdown and keeps streaming so the
// shutdown_complete event is observed; a second one exits immediately.
func followSession(sess *session.TemporalAgentSession) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	stdin := bufio.NewReader(os.Stdin)
	autoApprove := false
	shutdownSent := false

	for {
		ev, err := sess.NextEvent(ctx)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrSessionClosed):
			return nil
		case errors.Is(err, context.Canceled):
			if shutdownSent {
				return nil
			}
			shutdownSent = true
			stop()
			log.Println("Interrupt: requesting shutdown (Ctrl+C again to exit now)")
			if _, serr := sess.Submit(context.Background(), models.Op{Type: models.OpShutdown}); serr != nil {
				return serr
			}
			ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			continue
		default:
			return err
		}

		msg := ev.Msg
		switch msg.Type {
		case models.EventTurnStarted:
			fmt.Printf("── %s ──\n", msg.TurnID)

		case models.EventAgentMessage:
			fmt.Println(msg.Text)

		case models.EventAgentMessageDelta:
			fmt.Print(msg.Delta)

		case models.EventExecApprovalRequest:
			decision := models.DecisionDenied
			switch {
			case autoApprove:
				decision = models.DecisionApproved
				fmt.Printf("auto-approved: %s\n", strings.Join(msg.Command, " "))
			case interactive:
				decision = promptApproval(stdin, msg)
				if decision == models.DecisionApprovedForSession {
					autoApprove = true
				}
			default:
				fmt.Printf("denied (stdin is not a terminal): %s\n", strings.Join(msg.Command, " "))
			}
			if _, err := sess.Submit(context.Background(), models.Op{
				Type:     models.OpExecApproval,
				CallID:   msg.CallID,
				Decision: decision,
			}); err != nil {
				return fmt.Errorf("failed to send approval: %w", err)
			}

		case models.EventError:
			fmt.Printf("error: %s\n", msg.Message)

		case models.EventTurnComplete:
			fmt.Println()

		case models.EventShutdownComplete:
			log.Println("Session ended")
			return nil
		}
	}
}

// promptApproval asks the user for an approval decision on stdin.
func promptApproval(stdin *bufio.Reader, msg models.EventMsg) models.ReviewDecision {
	fmt.Printf("\napproval required: %s\n", strings.Join(msg.Command, " "))
	if msg.Cwd != "" {
		fmt.Printf("  cwd: %s\n", msg.Cwd)
	}
	if msg.Reason != "" {
		fmt.Printf("  reason: %s\n", msg.Reason)
	}

	for {
		fmt.Print("approve? [y]es / [n]o / [a]lways: ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println("\nno answer; denying")
			return models.DecisionDenied
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return models.DecisionApproved
		case "n", "no":
			return models.DecisionDenied
		case "a", "always":
			return models.DecisionApprovedForSession
		}
	}
}
