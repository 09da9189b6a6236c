// Package splitter cuts documents into token-bounded chunks.
//
// Splitting is lossless: every chunk records the byte offset it starts at and
// how many leading bytes it shares with its predecessor, so Reassemble gives
// back the original text exactly.
package splitter
