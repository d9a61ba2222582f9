// Package log provides colored console output for diagnostics. All messages
// go to stderr so they never mix with the bytes relayed on stdout.
package log

import (
	"os"

	"github.com/fatih/color"
)

var red = color.New(color.FgRed).FprintfFunc()
var blue = color.New(color.FgBlue).FprintfFunc()
var yellow = color.New(color.FgYellow).FprintfFunc()

// ErrorMsg prints an error message to stderr in red color.
func ErrorMsg(format string, a ...interface{}) {
	red(os.Stderr, "[!] Error: "+format, a...)
}

// InfoMsg prints an informational message to stderr in blue color.
func InfoMsg(format string, a ...interface{}) {
	blue(os.Stderr, "[+] "+format, a...)
}

// DebugMsg prints a debug trace to stderr in yellow color. Callers gate
// these on the verbose flag.
func DebugMsg(format string, a ...interface{}) {
	yellow(os.Stderr, "[*] "+format, a...)
}
