// Package retry provides one parameterized exponential-backoff policy shared
// by the three retrying call sites in the engine (structure extraction,
// embedding, and final-answer validation) so the backoff logic is not
// duplicated per caller.
package retry
