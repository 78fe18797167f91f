// Package logger is a small leveled logger shared by the backtest engine and
// the optimizer. It keeps the hot path cheap: a disabled level is a single
// string compare before any formatting happens.
package logger

import (
	"fmt"
	"os"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelError = "error"
)

var level = LevelInfo

func GetLevel() string {
	return level
}

func SetLevel(lvl string) {
	if lvl == "" {
		level = LevelInfo
		return
	}
	level = lvl
}

func Debug(args ...interface{}) {
	if level == LevelDebug {
		fmt.Println(args...)
	}
}

func Debugf(template string, args ...interface{}) {
	if level == LevelDebug {
		fmt.Printf(template, args...)
	}
}

func Info(args ...interface{}) {
	if level != LevelError {
		fmt.Println(args...)
	}
}

func Infof(template string, args ...interface{}) {
	if level != LevelError {
		fmt.Printf(template, args...)
	}
}

func Error(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
}

func Errorf(template string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, template, args...)
}
