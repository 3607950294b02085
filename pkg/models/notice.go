package models

import "time"

type NoticeKind string

const (
	NoticeDuplicate    NoticeKind = "duplicate"
	NoticeIngestFailed NoticeKind = "ingest_failed"
	NoticeExportFailed NoticeKind = "export_failed"
	NoticeExported     NoticeKind = "exported"
)

// DefaultNoticeDuration is how long a transient notice stays visible.
const DefaultNoticeDuration = 2 * time.Second

// Notice is a short-lived, user-facing message.
type Notice struct {
	Kind        NoticeKind
	FileName    string
	Fingerprint string
	Message     string
	Duration    time.Duration
	At          time.Time
}
