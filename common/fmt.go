package common

import (
	"fmt"
	"runtime"
	"time"
)

// 带时间戳和调用位置的控制台输出，用于业务流水日志

func emit(msg string) {
	_, file, line, _ := runtime.Caller(2)
	fmt.Println(time.Now().Format("2006-01-02 15:04:05.000"), "|",
		fmt.Sprintf("%s:%d", file, line), "|", msg)
}

func Printf(format string, v ...interface{}) {
	emit(fmt.Sprintf(format, v...))
}

func Println(v ...interface{}) {
	emit(fmt.Sprint(v...))
}
