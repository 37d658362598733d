// Interactive terminal client for codex-temporal sessions.
//
// Usage:
//
//	tui                     Start a new session, type the first message
//	tui -m "hello"          Start a new session seeded with a message
//	tui "hello"             Same, positional
//	tui -session <id>       Attach to a running session
//
// The conversation lives in a Temporal workflow, so detaching (Ctrl+D) and
// attaching again later resumes exactly where it left off. Ctrl+C shuts the
// session down for good.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/session"
	"github.com/mfateev/codex-temporal/internal/temporalclient"
	"github.com/mfateev/codex-temporal/internal/tui"
	"github.com/mfateev/codex-temporal/internal/workflow"
)

func main() {
	message := flag.String("m", "", "Initial message (submitted on startup)")
	messageLong := flag.String("message", "", "Initial message (alias for -m)")
	sessionID := flag.String("session", "", "Attach to an existing session")
	model := flag.String("model", "", "Model name (default $CODEX_MODEL or gpt-4o)")
	approvalPolicy := flag.String("approval-policy", "", "Approval policy: never | untrusted | on-request | on-failure")
	webSearch := flag.String("web-search", "", "Web search mode: live | cached | disabled")
	noMarkdown := flag.Bool("no-markdown", false, "Disable markdown rendering")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	inline := flag.Bool("inline", false, "Render inline instead of using the alternate screen")
	flag.Parse()

	prompt := *message
	if prompt == "" {
		prompt = *messageLong
	}
	if prompt == "" {
		prompt = flag.Arg(0)
	}

	modelName := *model
	if modelName == "" {
		modelName = os.Getenv("CODEX_MODEL")
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	opts := temporalclient.MustLoadClientOptions("", "")
	opts.Identity = "codex-temporal-tui"

	c, err := client.Dial(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to Temporal: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	var sess *session.TemporalAgentSession
	if *sessionID != "" {
		sess = session.Attach(c, *sessionID)
	} else {
		input := workflow.CodexWorkflowInput{
			Model:          modelName,
			Instructions:   "You are a helpful coding assistant.",
			ApprovalPolicy: approvalPolicyFrom(*approvalPolicy),
			WebSearchMode:  webSearchFrom(*webSearch),
		}
		if home := os.Getenv("CODEX_HOME"); home != "" {
			input.CodexHome = home
			servers, err := mcp.LoadServers(home)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			input.McpServers = servers
		}
		sess = session.New(c, "codex-tui-"+uuid.NewString(), input)
	}

	config := tui.Config{
		Prompt:     prompt,
		Model:      modelName,
		NoMarkdown: *noMarkdown,
		NoColor:    *noColor,
		Inline:     *inline,
	}

	if err := tui.Run(config, sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// approvalPolicyFrom resolves the policy from the flag, falling back to
// CODEX_APPROVAL_POLICY.
func approvalPolicyFrom(flagValue string) models.ApprovalPolicy {
	if flagValue == "" {
		flagValue = os.Getenv("CODEX_APPROVAL_POLICY")
	}
	return models.ParseApprovalPolicy(flagValue)
}

// webSearchFrom resolves the mode from the flag, falling back to
// CODEX_WEB_SEARCH.
func webSearchFrom(flagValue string) models.WebSearchMode {
	if flagValue == "" {
		flagValue = os.Getenv("CODEX_WEB_SEARCH")
	}
	return models.ParseWebSearchMode(flagValue)
}
