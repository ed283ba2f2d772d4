package middleware

import (
	"Aegis/Models"
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogConfig controls the request logging middleware.
type LogConfig struct {
	Console     bool
	File        bool
	LogFilePath string
	// Paths (prefix match) that never get logged
	SkipPaths []string
}

// LogData is one request log line, written as JSON to the log file.
type LogData struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	URL       string        `json:"url"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"latency"`
	IP        string        `json:"ip"`
	UserAgent string        `json:"user_agent"`
	UserID    uint          `json:"user_id,omitempty"`
	Username  string        `json:"username,omitempty"`
	Error     string        `json:"error,omitempty"`
	Bytes     int64         `json:"bytes"`
}

var logFileMu sync.Mutex

// RequestLogger logs every API request as a JSON line. Static photo and
// signature fetches are skipped to keep the file readable.
func RequestLogger() fiber.Handler {
	return loggingMiddleware(LogConfig{
		Console:     true,
		File:        true,
		LogFilePath: "logs/requests.log",
		SkipPaths:   []string{"/health", "/ZonePhotos", "/SignatureImages"},
	})
}

// ErrorLogger writes failed requests (status >= 400 or handler error) to
// a separate file so they are easy to grep during support calls.
func ErrorLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if err == nil && c.Response().StatusCode() < 400 {
			return nil
		}

		data := collect(c, start, err)
		line, _ := json.Marshal(data)
		writeLogLine("logs/errors.log", string(line))
		return err
	}
}

func loggingMiddleware(cfg LogConfig) fiber.Handler {
	if cfg.File {
		if err := os.MkdirAll("logs", 0755); err != nil {
			log.Printf("Error creating logs directory: %v\n", err)
		}
	}

	return func(c *fiber.Ctx) error {
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(c.Path(), skip) {
				return c.Next()
			}
		}

		start := time.Now()
		err := c.Next()

		data := collect(c, start, err)

		line, _ := json.Marshal(data)
		if cfg.Console {
			log.Println(string(line))
		}
		if cfg.File {
			writeLogLine(cfg.LogFilePath, string(line))
		}
		return err
	}
}

func collect(c *fiber.Ctx, start time.Time, err error) LogData {
	data := LogData{
		Timestamp: start,
		Method:    c.Method(),
		Path:      c.Path(),
		URL:       c.OriginalURL(),
		Status:    c.Response().StatusCode(),
		Latency:   time.Since(start),
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
		Bytes:     int64(len(c.Response().Body())),
	}
	if user, ok := c.Locals("user").(Models.User); ok {
		data.UserID = user.Id
		data.Username = user.Name
	}
	if err != nil {
		data.Error = err.Error()
	}
	return data
}

func writeLogLine(filePath, message string) {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}
	defer file.Close()

	if _, err = file.WriteString(message + "\n"); err != nil {
		log.Printf("Error writing to log file: %v\n", err)
	}
}
