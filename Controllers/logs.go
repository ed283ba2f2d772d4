package Controllers

import (
	"Aegis/middleware"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogGroup is one endpoint's aggregated traffic.
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MinLatency  float64              `json:"min_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

// parseDateRange reads date_from/date_to query params, defaulting to
// today when neither is given.
func parseDateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	fromStr := c.Query("date_from", "")
	toStr := c.Query("date_to", "")

	now := time.Now()
	if fromStr == "" && toStr == "" {
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		to := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999999, now.Location())
		return from, to, nil
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, now, fmt.Errorf("invalid date_from format, use YYYY-MM-DD")
		}
		from = parsed
	}

	to := now
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid date_to format, use YYYY-MM-DD")
		}
		to = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, 999999999, parsed.Location())
	}

	return from, to, nil
}

// readLogsFromFile loads the JSON-lines log, keeping entries inside the
// date range. Unparseable lines are skipped.
func readLogsFromFile(filePath string, dateFrom, dateTo time.Time) ([]middleware.LogData, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var logs []middleware.LogData
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.After(dateFrom) && entry.Timestamp.Before(dateTo) {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

// GetLogs returns request logs grouped by method+path with latency and
// success-rate stats per group.
// GET /api/logs
func GetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	dateFrom, dateTo, err := parseDateRange(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	logs, err := readLogsFromFile("logs/requests.log", dateFrom, dateTo)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	pathFilter := strings.ToLower(c.Query("path", ""))
	methodFilter := strings.ToUpper(c.Query("method", ""))
	statusFilter := c.Query("status", "")

	var filtered []middleware.LogData
	for _, entry := range logs {
		if pathFilter != "" && !strings.Contains(strings.ToLower(entry.Path), pathFilter) {
			continue
		}
		if methodFilter != "" && entry.Method != methodFilter {
			continue
		}
		if statusFilter != "" {
			status, err := strconv.Atoi(statusFilter)
			if err == nil && entry.Status != status {
				continue
			}
		}
		filtered = append(filtered, entry)
	}

	groups := groupLogsByPath(filtered)

	totalGroups := len(groups)
	totalPages := (totalGroups + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > totalGroups {
		start = totalGroups
	}
	end := start + pageSize
	if end > totalGroups {
		end = totalGroups
	}

	return c.JSON(fiber.Map{
		"groups":       groups[start:end],
		"total_logs":   len(filtered),
		"total_groups": totalGroups,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  totalPages,
		"date_from":    dateFrom,
		"date_to":      dateTo,
	})
}

func groupLogsByPath(logs []middleware.LogData) []LogGroup {
	groupMap := make(map[string]*LogGroup)

	for _, entry := range logs {
		key := fmt.Sprintf("%s %s", entry.Method, entry.Path)
		latencyMs := float64(entry.Latency.Microseconds()) / 1000.0
		success := 0.0
		if entry.Status >= 200 && entry.Status < 300 {
			success = 1.0
		}

		group, exists := groupMap[key]
		if !exists {
			groupMap[key] = &LogGroup{
				Path:        entry.Path,
				Method:      entry.Method,
				Count:       1,
				AvgLatency:  latencyMs,
				MinLatency:  latencyMs,
				MaxLatency:  latencyMs,
				SuccessRate: success,
				Logs:        []middleware.LogData{entry},
			}
			continue
		}

		group.Count++
		group.Logs = append(group.Logs, entry)
		group.AvgLatency = (group.AvgLatency*float64(group.Count-1) + latencyMs) / float64(group.Count)
		if latencyMs < group.MinLatency {
			group.MinLatency = latencyMs
		}
		if latencyMs > group.MaxLatency {
			group.MaxLatency = latencyMs
		}
		group.SuccessRate = (group.SuccessRate*float64(group.Count-1) + success) / float64(group.Count)
	}

	var groups []LogGroup
	for _, group := range groupMap {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}

// GetLogsByPath returns the raw log lines of one endpoint, newest first.
// GET /api/logs/path/:path
func GetLogsByPath(c *fiber.Ctx) error {
	path := c.Params("path")
	if path == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Path parameter is required"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	dateFrom, dateTo, err := parseDateRange(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	logs, err := readLogsFromFile("logs/requests.log", dateFrom, dateTo)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	var pathLogs []middleware.LogData
	for _, entry := range logs {
		if strings.Contains(entry.Path, path) {
			pathLogs = append(pathLogs, entry)
		}
	}

	sort.Slice(pathLogs, func(i, j int) bool {
		return pathLogs[i].Timestamp.After(pathLogs[j].Timestamp)
	})

	totalLogs := len(pathLogs)
	totalPages := (totalLogs + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > totalLogs {
		start = totalLogs
	}
	end := start + pageSize
	if end > totalLogs {
		end = totalLogs
	}

	return c.JSON(fiber.Map{
		"logs":        pathLogs[start:end],
		"total_logs":  totalLogs,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
		"path":        path,
		"date_from":   dateFrom,
		"date_to":     dateTo,
	})
}

// GetLogStats summarizes traffic for the admin health panel.
// GET /api/logs/stats
func GetLogStats(c *fiber.Ctx) error {
	dateFrom, dateTo, err := parseDateRange(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	logs, err := readLogsFromFile("logs/requests.log", dateFrom, dateTo)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	var successfulRequests, errorRequests int
	var totalLatency, minLatency, maxLatency time.Duration
	methodStats := make(map[string]int)
	statusStats := make(map[int]int)
	pathStats := make(map[string]int)

	for i, entry := range logs {
		if entry.Status >= 200 && entry.Status < 300 {
			successfulRequests++
		} else if entry.Status >= 400 {
			errorRequests++
		}

		totalLatency += entry.Latency
		if i == 0 || entry.Latency < minLatency {
			minLatency = entry.Latency
		}
		if entry.Latency > maxLatency {
			maxLatency = entry.Latency
		}

		methodStats[entry.Method]++
		statusStats[entry.Status]++
		pathStats[entry.Path]++
	}

	totalRequests := len(logs)
	avgLatency := time.Duration(0)
	successRate := 0.0
	if totalRequests > 0 {
		avgLatency = totalLatency / time.Duration(totalRequests)
		successRate = float64(successfulRequests) / float64(totalRequests) * 100
	}

	var topPaths []fiber.Map
	for path, count := range pathStats {
		topPaths = append(topPaths, fiber.Map{
			"path":  path,
			"count": count,
		})
	}
	sort.Slice(topPaths, func(i, j int) bool {
		return topPaths[i]["count"].(int) > topPaths[j]["count"].(int)
	})
	if len(topPaths) > 10 {
		topPaths = topPaths[:10]
	}

	return c.JSON(fiber.Map{
		"total_requests":      totalRequests,
		"successful_requests": successfulRequests,
		"error_requests":      errorRequests,
		"success_rate":        successRate,
		"avg_latency_ms":      float64(avgLatency.Microseconds()) / 1000.0,
		"min_latency_ms":      float64(minLatency.Microseconds()) / 1000.0,
		"max_latency_ms":      float64(maxLatency.Microseconds()) / 1000.0,
		"method_stats":        methodStats,
		"status_stats":        statusStats,
		"top_paths":           topPaths,
		"date_from":           dateFrom,
		"date_to":             dateTo,
	})
}
