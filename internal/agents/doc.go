// Package agents implements the pipeline stages that sit on top of the model
// cascade: the planner, the insight generator, the numeric evaluator and the
// creative generator.
//
// LLM output is schema-less. Every stage reads the extraction.Result it gets
// back by looking up the keys it needs and substituting defaults when they are
// missing. A response that parses but lacks the stage's key is a contract
// violation; it is reported in the stage output's Error field ("__error" in
// JSON) next to an empty result list, never as a Go error.
package agents
