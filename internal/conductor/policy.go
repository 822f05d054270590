package conductor

import (
	"strings"

	"github.com/JamesPrial/conductor/internal/ledger"
)

// AgentPolicy chooses the agent for a newly created task from its name.
type AgentPolicy func(name string) ledger.Agent

// SetupAgentPolicy assigns Architect to tasks whose name contains "Setup"
// (case-sensitive) and Developer to everything else.
func SetupAgentPolicy(name string) ledger.Agent {
	if strings.Contains(name, "Setup") {
		return ledger.AgentArchitect
	}
	return ledger.AgentDeveloper
}
