package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Topic addresses one forum thread in the operator group chat.
type Topic struct {
	ChatID   int64 `yaml:"chat_id"`
	ThreadID int   `yaml:"thread_id"`
}

// Topics routes each message category to its thread. Categories missing
// from the file inherit the renewals topic.
type Topics struct {
	Renewals Topic `yaml:"renewals"`
	Orders   Topic `yaml:"orders"`
	Supply   Topic `yaml:"supply"`
	Alerts   Topic `yaml:"alerts"`
}

// LoadTopics reads the topic routing file.
func LoadTopics(path string) (*Topics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topics file: %w", err)
	}
	var t Topics
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parsing topics file %s: %w", path, err)
	}
	if t.Renewals.ChatID == 0 {
		return nil, fmt.Errorf("topics file %s: renewals.chat_id is required", path)
	}
	if t.Orders.ChatID == 0 {
		t.Orders = t.Renewals
	}
	if t.Supply.ChatID == 0 {
		t.Supply = t.Renewals
	}
	if t.Alerts.ChatID == 0 {
		t.Alerts = t.Renewals
	}
	return &t, nil
}
