// Package logx configures fridge's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller, no colour off-TTY)
//   - File output JSON-structured
//   - Derived loggers cheap (With() only appends field closures)
package logx
