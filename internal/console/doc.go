// Package console drives a position check from line-oriented text input.
//
// Each input line is one command (proceed, back, jog, exit, ...). After
// every command the console prints the current step so an operator at a
// terminal, or a script feeding stdin, can follow along.
package console
