package mcp

import "github.com/mark3labs/mcp-go/mcp"

// draftNoteTool defines the draft_note MCP tool.
var draftNoteTool = mcp.NewTool("draft_note",
	mcp.WithDescription("Draft a structured clinical note from a patient intake record. The note never contains diagnoses or treatment and must be reviewed by a clinician."),
	mcp.WithString("intake_json",
		mcp.Required(),
		mcp.Description("The intake record as a JSON object"),
	),
	mcp.WithString("risk_level",
		mcp.Description("Rule-engine risk level; defaults to the intake's risk_flags_rule_based.risk_level"),
		mcp.Enum("LOW", "MED", "HIGH"),
	),
	mcp.WithString("risk_flags",
		mcp.Description("Rule-engine flags as a JSON array of strings; defaults to the intake's flags"),
	),
)

// validateJSONTool defines the validate_json MCP tool.
var validateJSONTool = mcp.NewTool("validate_json",
	mcp.WithDescription("Validate a JSON document against the intake or output schema."),
	mcp.WithString("document_json",
		mcp.Required(),
		mcp.Description("The JSON document to validate"),
	),
	mcp.WithString("schema",
		mcp.Description("Which schema to validate against (default output)"),
		mcp.Enum("output", "intake"),
	),
)

// recentRunsTool defines the recent_runs MCP tool.
var recentRunsTool = mcp.NewTool("recent_runs",
	mcp.WithDescription("List recent note drafting runs with their outcome."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of runs to return (default 10)"),
	),
	mcp.WithString("status",
		mcp.Description("Only return runs with this status"),
		mcp.Enum("running", "succeeded", "exhausted", "failed"),
	),
)
