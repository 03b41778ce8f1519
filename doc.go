// Package shoot provides a configuration-driven orchestrator for
// hierarchical multi-agent Kubernetes diagnostics.
//
// Shoot runs a coordinator assistant that investigates cluster problems
// by delegating scoped collection tasks to isolated subagents. Each
// subagent talks to its own restricted set of MCP tool servers, so a
// workload-cluster collector can never touch management-cluster
// credentials and vice versa. The coordinator assembles the collectors'
// findings into a bounded diagnostic report.
//
// # Quick Start
//
// Install shoot:
//
//	go install github.com/giantswarm/shoot/cmd/shoot@latest
//
// Create a configuration (see examples/cluster-diagnostics):
//
//	assistants:
//	  investigator:
//	    description: "Investigates workload cluster failures"
//	    system_prompt_file: prompts/coordinator.md
//	    allowed_tools: [Task]
//	    subagents: [wc-collector]
//
//	subagents:
//	  wc-collector:
//	    description: "Collects evidence from the workload cluster"
//	    system_prompt_file: prompts/wc-collector.md
//	    mcp_servers: [kubernetes-wc]
//
// Start the server:
//
//	shoot serve --config shoot.yaml
//
// Then POST an investigation:
//
//	curl -X POST localhost:8080 -d '{"query": "why is pod X crashlooping?"}'
//
// # Packages
//
// The HTTP surface lives in pkg/server, investigation orchestration in
// pkg/coordinator, the agent loop and MCP plumbing in pkg/runtime, and
// configuration loading, validation, and hot reload in pkg/config.
package shoot
