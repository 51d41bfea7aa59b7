// Package logging contains helpers to print leveled messages through a standard logger.
package logging

import "log"

// PrintlnInfo prints the given message with the INFO level.
func PrintlnInfo(logger *log.Logger, message interface{}) {
	logger.Println("INFO:", message)
}

// PrintlnWarn prints the given message with the WARN level.
func PrintlnWarn(logger *log.Logger, message interface{}) {
	logger.Println("WARN:", message)
}

// PrintlnError prints the given message with the ERROR level.
func PrintlnError(logger *log.Logger, message interface{}) {
	logger.Println("ERROR:", message)
}
