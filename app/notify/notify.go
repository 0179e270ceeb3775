// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package notify sends operator-facing alerts (scavenger activation,
// repeated admission conflicts, failed overhead runs) to a Feishu group
// webhook, the same channel the teacher's panic-robot integration posts to
// (bootstrap.loadFeishu, app/monitor's PanicRobotFeishuPushUrl), reusing
// go-resty instead of a dedicated SDK call since a group webhook post is a
// single JSON POST.
package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Notifier sends a single text alert. It never returns an error to its
// caller's caller — callers treat notification failures as best-effort and
// only log them, since a missed chat message must never block scheduling
// or execution.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Feishu posts messages to a Feishu custom group bot webhook.
type Feishu struct {
	client     *resty.Client
	webhookURL string
}

// NewFeishu creates a Feishu notifier. webhookURL is the group bot webhook
// configured under Feishu.GroupWebhook; an empty URL yields a Notifier
// whose Notify is a no-op, so callers don't need to branch on whether
// Feishu is enabled.
func NewFeishu(webhookURL string) *Feishu {
	return &Feishu{client: resty.New(), webhookURL: webhookURL}
}

// Notify posts a plain-text message to the configured webhook.
func (f *Feishu) Notify(ctx context.Context, text string) error {
	if f.webhookURL == "" {
		return nil
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"msg_type": "text",
			"content":  map[string]string{"text": text},
		}).
		Post(f.webhookURL)
	if err != nil {
		return fmt.Errorf("notify: feishu post failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: feishu webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// Noop discards every notification, used when Feishu.Enable is false.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }
