// Package tools implements the two capabilities the query agent can invoke:
// semantic search over the published index, and live file reads from the
// codebase. Tools are exposed through a small registry the agent consults
// for specs and dispatch.
//
// Tool failures (unknown tier, missing file, unpublished index) are
// ordinary error values the agent surfaces to the model as observations;
// nothing here is ever fatal to the serving process.
package tools
