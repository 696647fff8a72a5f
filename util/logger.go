package util

import (
	"io"
	"log"
	"os"
)

var (
	DebugMode = false
	debugLog  = log.New(os.Stdout, "[DEBUG] ", log.LstdFlags)
	infoLog   = log.New(os.Stdout, "[INFO] ", log.LstdFlags)
	warnLog   = log.New(os.Stdout, "[WARN] ", log.LstdFlags)
	errorLog  = log.New(os.Stderr, "[ERROR] ", log.LstdFlags)
)

// EnableDebugFile 启用调试模式，并将日志同时写入指定文件
func EnableDebugFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	DebugMode = true
	debugLog.SetOutput(io.MultiWriter(os.Stdout, f))
	infoLog.SetOutput(io.MultiWriter(os.Stdout, f))
	warnLog.SetOutput(io.MultiWriter(os.Stdout, f))
	errorLog.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

func Debug(format string, v ...interface{}) {
	if DebugMode {
		debugLog.Printf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	infoLog.Printf(format, v...)
}

func Warn(format string, v ...interface{}) {
	warnLog.Printf(format, v...)
}

func Error(format string, v ...interface{}) {
	errorLog.Printf(format, v...)
}
