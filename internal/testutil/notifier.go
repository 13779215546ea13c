package testutil

import "sync"

// Email is one SendEmail call seen by a Notifier.
type Email struct {
	TemplateID string
	Data       map[string]interface{}
	Recipient  string
}

// Notifier records notifications instead of delivering them.
type Notifier struct {
	mu      sync.Mutex
	devices []string
	emails  []Email
}

func (n *Notifier) NotifyDevice(macID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.devices = append(n.devices, macID)
}

func (n *Notifier) SendEmail(templateID string, data map[string]interface{}, recipient string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, Email{TemplateID: templateID, Data: data, Recipient: recipient})
}

// Devices returns the notified MACs in call order.
func (n *Notifier) Devices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.devices...)
}

func (n *Notifier) Emails() []Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Email(nil), n.emails...)
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.devices = nil
	n.emails = nil
}
