// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"time"
)

// Notification is the JSON document delivered to a configured webhook
// for each upload lifecycle event.
type Notification struct {
	Version string    `json:"version"`
	Source  string    `json:"source"`
	Type    Type      `json:"type"`
	Time    time.Time `json:"time"`

	Session SessionEntity `json:"session"`
	Part    *PartEntity   `json:"part,omitempty"`
	Fid     string        `json:"fid,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// SessionEntity identifies the upload session the event belongs to.
type SessionEntity struct {
	UniqueID   string `json:"uniqueId"`
	BatchNo    string `json:"batchNo"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	TotalParts int    `json:"totalParts"`
}

// PartEntity describes the chunk a part-level event refers to.
type PartEntity struct {
	Index   int    `json:"index"`
	Size    int64  `json:"size"`
	Attempt int    `json:"attempt,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// BuildNotification converts an Event into its delivery document.
func BuildNotification(ev Event) *Notification {
	n := &Notification{
		Version: "1.0",
		Source:  "wovault:upload",
		Type:    ev.Type,
		Time:    time.Now().UTC(),
		Session: SessionEntity{
			UniqueID:   ev.UniqueID,
			BatchNo:    ev.BatchNo,
			FileName:   ev.FileName,
			FileSize:   ev.FileSize,
			TotalParts: ev.TotalParts,
		},
		Fid: ev.Fid,
	}
	if ev.PartIndex > 0 {
		n.Part = &PartEntity{
			Index:   ev.PartIndex,
			Size:    ev.PartSize,
			Attempt: ev.Attempt,
			Reason:  ev.Reason,
		}
	}
	if ev.Err != nil {
		n.Error = ev.Err.Error()
	}
	return n
}

// MatchesType checks if an event type matches a subscription pattern.
// Supports trailing-wildcard matching (e.g. "session.*" matches
// "session.completed").
func MatchesType(pattern string, eventType Type) bool {
	name := string(eventType)

	if pattern == name {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return false
}
