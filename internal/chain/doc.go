// Package chain runs robot commands strictly one after another.
//
// Each command's completion gates the next. By default the first failure
// aborts the chain and the remaining commands are never issued; cleanup
// chains opt into ContinuePastFailure instead. Cross-cutting behavior
// (logging, panic recovery, tracing, metrics) is layered on with Middleware.
package chain
