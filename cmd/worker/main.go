// Worker executable for codex-temporal.
//
// Runs the workflow and activity workers on the shared task queue: the
// workflow side executes the deterministic agent loop, the activity side
// performs the real I/O (model calls, tool execution, MCP round trips).
package main

import (
	"log"
	"os"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/mfateev/codex-temporal/internal/activities"
	"github.com/mfateev/codex-temporal/internal/execpolicy"
	"github.com/mfateev/codex-temporal/internal/llm"
	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/temporalclient"
	"github.com/mfateev/codex-temporal/internal/tools"
	"github.com/mfateev/codex-temporal/internal/version"
	"github.com/mfateev/codex-temporal/internal/workflow"
)

func main() {
	// At least one model provider must be configured or every turn would
	// fail its first activity.
	hasOpenAI := os.Getenv("OPENAI_API_KEY") != "" || os.Getenv("OPENAI_BEARER_TOKEN") != ""
	hasAnthropic := os.Getenv("ANTHROPIC_API_KEY") != ""
	if !hasOpenAI && !hasAnthropic {
		log.Fatal("At least one LLM provider API key is required: OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	if hasOpenAI {
		log.Println("OpenAI provider available")
	}
	if hasAnthropic {
		log.Println("Anthropic provider available")
	}

	// A broken rules file should stop the worker at startup, not surface as
	// load_exec_policy failures in the middle of someone's session.
	if codexHome := os.Getenv("CODEX_HOME"); codexHome != "" {
		policy, err := execpolicy.LoadDir(codexHome)
		if err != nil {
			log.Fatalf("Invalid exec policy rules under %s: %v", codexHome, err)
		}
		if n := policy.Len(); n > 0 {
			log.Printf("Loaded %d exec policy rules from %s", n, codexHome)
		}
	}

	// Temporal connection via envconfig (env vars, config files, TLS).
	opts := temporalclient.MustLoadClientOptions("", "")
	opts.Identity = "codex-temporal-worker"

	c, err := client.Dial(opts)
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, workflow.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflow.CodexWorkflow)

	// Activities register under the snake_case names the workflow invokes
	// them by, so the workflow code never imports activity structs.
	registry := tools.DefaultRegistry()
	mcpStore := mcp.NewStore()

	modelActs := activities.NewModelActivities(llm.NewMultiProviderClient())
	w.RegisterActivityWithOptions(modelActs.ModelCall,
		activity.RegisterOptions{Name: activities.ModelCallActivityName})

	toolActs := activities.NewToolActivities(registry, mcpStore)
	w.RegisterActivityWithOptions(toolActs.ToolExec,
		activity.RegisterOptions{Name: activities.ToolExecActivityName})

	policyActs := activities.NewPolicyActivities()
	w.RegisterActivityWithOptions(policyActs.LoadExecPolicy,
		activity.RegisterOptions{Name: activities.LoadExecPolicyActivityName})

	mcpActs := activities.NewMcpActivities(mcpStore)
	w.RegisterActivityWithOptions(mcpActs.ListMcpTools,
		activity.RegisterOptions{Name: activities.ListMcpToolsActivityName})
	w.RegisterActivityWithOptions(mcpActs.CleanupMcpSession,
		activity.RegisterOptions{Name: activities.CleanupMcpSessionActivityName})

	log.Printf("Registered %d tools", registry.Len())
	log.Printf("Worker version: %s", version.GitCommit)
	log.Printf("Starting worker on task queue: %s", workflow.TaskQueue)
	if opts.HostPort != "" {
		log.Printf("Temporal server: %s", opts.HostPort)
	}

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker exited: %v", err)
	}

	log.Println("Worker stopped")
}
