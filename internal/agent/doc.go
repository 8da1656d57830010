// Package agent runs the bounded question-answering loop: up to N-1 rounds
// in which the model may call one tool (search or list_file_content) or
// answer early, followed by a forced-summary round with tools withheld,
// which is what guarantees termination.
//
// The model's choice each round is a closed tagged action parsed from its
// JSON response; free-form output is never string-matched. Candidate final
// answers must validate against the fixed schema, with a small bounded
// number of corrective retries before the session fails with a structured
// error. Tool failures are observations fed back to the model, never
// session faults.
package agent
