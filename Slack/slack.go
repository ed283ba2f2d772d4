package Slack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SlackClient holds the Slack bot token and base URL
type SlackClient struct {
	Token   string
	BaseURL string
}

// SlackMessage represents a message payload
type SlackMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Parse   string `json:"parse,omitempty"`
}

// SlackResponse represents the API response
type SlackResponse struct {
	OK      bool   `json:"ok"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// ChannelMessage represents a message from channel history
type ChannelMessage struct {
	TS      string `json:"ts"`
	Text    string `json:"text"`
	BotID   string `json:"bot_id,omitempty"`
	User    string `json:"user,omitempty"`
	Subtype string `json:"subtype,omitempty"`
}

// NewSlackClient creates a new Slack client
// Required Bot Token Scopes:
// - chat:write (send messages)
// - pins:write (pin/unpin messages)
// - pins:read (list pinned messages)
// - channels:history (read channel messages)
// - chat:write.public (send to channels without being invited)
func NewSlackClient(token string) *SlackClient {
	return &SlackClient{
		Token:   token,
		BaseURL: "https://slack.com/api",
	}
}

// post sends a JSON payload to one Slack Web API method and decodes the
// envelope. Every write endpoint goes through here.
func (s *SlackClient) post(method string, payload interface{}) (*SlackResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling JSON: %v", err)
	}

	url := fmt.Sprintf("%s/%s", s.BaseURL, method)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.Token))

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %v", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %v", err)
	}

	return &slackResp, nil
}

// get performs a GET against one Slack Web API method and returns the
// raw body for endpoint-specific decoding.
func (s *SlackClient) get(method, query string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s?%s", s.BaseURL, method, query)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.Token))

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %v", err)
	}

	return body, nil
}

// SendMessage sends a message to a Slack channel
func (s *SlackClient) SendMessage(channel, message string) (*SlackResponse, error) {
	resp, err := s.post("chat.postMessage", SlackMessage{
		Channel: channel,
		Text:    message,
		Parse:   "full",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("slack API error: %s", resp.Error)
	}
	return resp, nil
}

// PinMessage pins a message to a channel
func (s *SlackClient) PinMessage(channel, timestamp string) error {
	resp, err := s.post("pins.add", map[string]string{
		"channel":   channel,
		"timestamp": timestamp,
	})
	if err != nil {
		return err
	}

	if !resp.OK {
		switch resp.Error {
		case "no_permission":
			return fmt.Errorf("bot lacks 'pins:write' permission")
		case "channel_not_found":
			return fmt.Errorf("channel '%s' not found or bot not in channel", channel)
		case "message_not_found":
			return fmt.Errorf("message with timestamp '%s' not found", timestamp)
		case "already_pinned":
			return nil // Already pinned, not an error
		default:
			return fmt.Errorf("slack API error: %s", resp.Error)
		}
	}

	return nil
}

// UnpinMessage unpins a message from a channel
func (s *SlackClient) UnpinMessage(channel, timestamp string) error {
	resp, err := s.post("pins.remove", map[string]string{
		"channel":   channel,
		"timestamp": timestamp,
	})
	if err != nil {
		return err
	}
	if !resp.OK && resp.Error != "no_pin" {
		return fmt.Errorf("slack API error: %s", resp.Error)
	}
	return nil
}

// GetPinnedMessages gets all pinned message timestamps in a channel
func (s *SlackClient) GetPinnedMessages(channel string) ([]string, error) {
	body, err := s.get("pins.list", fmt.Sprintf("channel=%s", channel))
	if err != nil {
		return nil, err
	}

	var response struct {
		OK    bool `json:"ok"`
		Items []struct {
			Message struct {
				TS   string `json:"ts"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"items"`
		Error string `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %v", err)
	}

	if !response.OK {
		return nil, fmt.Errorf("slack API error: %s", response.Error)
	}

	var timestamps []string
	for _, item := range response.Items {
		timestamps = append(timestamps, item.Message.TS)
	}

	return timestamps, nil
}

// DeleteMessage deletes a message
func (s *SlackClient) DeleteMessage(channel, timestamp string) error {
	resp, err := s.post("chat.delete", map[string]string{
		"channel": channel,
		"ts":      timestamp,
	})
	if err != nil {
		return err
	}

	if !resp.OK {
		switch resp.Error {
		case "message_not_found":
			return nil // Message already deleted
		case "cant_delete_message":
			return fmt.Errorf("cannot delete message (might be too old)")
		default:
			return fmt.Errorf("slack API error: %s", resp.Error)
		}
	}

	return nil
}

// GetChannelHistory gets recent messages from a channel
func (s *SlackClient) GetChannelHistory(channel string, limit int) ([]ChannelMessage, error) {
	body, err := s.get("conversations.history", fmt.Sprintf("channel=%s&limit=%d", channel, limit))
	if err != nil {
		return nil, err
	}

	var response struct {
		OK       bool             `json:"ok"`
		Messages []ChannelMessage `json:"messages"`
		Error    string           `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %v", err)
	}

	if !response.OK {
		return nil, fmt.Errorf("slack API error: %s", response.Error)
	}

	return response.Messages, nil
}

// SendAndPinWithCleanup sends a message, pins it, and removes all older
// bot messages so the channel carries exactly one live checklist. It
// returns the timestamp of the pinned message, or "" when the existing
// message already matched and nothing was sent.
func (s *SlackClient) SendAndPinWithCleanup(channel, message string) (string, error) {
	messages, err := s.GetChannelHistory(channel, 100)
	if err != nil {
		fmt.Printf("Warning: Could not get channel history: %v\n", err)
	} else {
		// Check if the most recent bot message has the same content
		for _, msg := range messages {
			if msg.BotID != "" {
				if messagesAreEqual(msg.Text, message) {
					fmt.Printf("Message content unchanged, skipping update for %s\n", channel)
					return msg.TS, nil
				}
				break // Only check the most recent bot message
			}
		}

		// Delete all bot messages if we're sending a new one
		botMessageCount := 0
		for _, msg := range messages {
			if msg.BotID != "" {
				if err := s.DeleteMessage(channel, msg.TS); err != nil {
					fmt.Printf("Could not delete message %s: %v\n", msg.TS, err)
				} else {
					botMessageCount++
				}
				time.Sleep(200 * time.Millisecond) // Rate limiting
			}
		}
		if botMessageCount > 0 {
			fmt.Printf("Deleted %d old bot messages\n", botMessageCount)
		}
	}

	// Unpin whatever is still pinned before pinning the replacement
	pinnedMessages, err := s.GetPinnedMessages(channel)
	if err != nil {
		fmt.Printf("Warning: Could not get pinned messages: %v\n", err)
	} else {
		for _, timestamp := range pinnedMessages {
			if err := s.UnpinMessage(channel, timestamp); err != nil {
				fmt.Printf("Could not unpin message %s: %v\n", timestamp, err)
			}
		}
	}

	resp, err := s.SendMessage(channel, message)
	if err != nil {
		return "", fmt.Errorf("error sending message: %v", err)
	}

	time.Sleep(1 * time.Second)
	if err := s.PinMessage(channel, resp.TS); err != nil {
		fmt.Printf("Warning: Message sent but pinning failed: %v\n", err)
		return resp.TS, nil
	}

	return resp.TS, nil
}

// messagesAreEqual compares two messages, ignoring the date header that
// changes on every render.
func messagesAreEqual(oldMessage, newMessage string) bool {
	oldFiltered := removeDateLines(oldMessage)
	newFiltered := removeDateLines(newMessage)

	return strings.TrimSpace(oldFiltered) == strings.TrimSpace(newFiltered)
}

// removeDateLines strips the rendered-at lines before comparison.
func removeDateLines(message string) string {
	lines := strings.Split(message, "\n")
	var filteredLines []string

	for _, line := range lines {
		if !strings.Contains(line, "*Date:") &&
			!strings.Contains(line, "*Updated:") {
			filteredLines = append(filteredLines, line)
		}
	}

	return strings.Join(filteredLines, "\n")
}
