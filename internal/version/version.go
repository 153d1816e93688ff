// Package version хранит метаданные сборки, проставляемые через -ldflags:
//
//	go build -ldflags "-X github.com/vladislavdragonenkov/orderapi/internal/version.version=v1.2.3"
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

// Fields возвращает метаданные в виде, удобном для логов и JSON-ответов.
func Fields() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
		"date":    date,
	}
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
